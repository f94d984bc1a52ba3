package repository

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
)

// pgMessageRepository реализует MessageRepository для PostgreSQL.
type pgMessageRepository struct {
	db     DBTX
	logger *zap.Logger
}

// Compile-time check
var _ MessageRepository = (*pgMessageRepository)(nil)

// NewPgMessageRepository создает новый экземпляр репозитория сообщений.
func NewPgMessageRepository(db DBTX, logger *zap.Logger) MessageRepository {
	return &pgMessageRepository{
		db:     db,
		logger: logger.Named("PgMessageRepo"),
	}
}

func (r *pgMessageRepository) AddMessage(ctx context.Context, msg *models.StoredMessage) error {
	query := `INSERT INTO messages (id, chat_id, sender_type, sender_name, content, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.ChatID, msg.SenderType, msg.SenderName, msg.Content, msg.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to add message",
			zap.String("chatID", msg.ChatID), zap.Error(err))
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

// ListMessages возвращает последние limit сообщений чата в хронологическом
// порядке. limit <= 0 означает без ограничения.
func (r *pgMessageRepository) ListMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	query := `SELECT id, chat_id, sender_type, sender_name, content, created_at
	          FROM messages WHERE chat_id = $1 ORDER BY created_at ASC`
	args := []any{chatID}
	if limit > 0 {
		// Берем хвост истории, сохраняя хронологический порядок
		query = `SELECT id, chat_id, sender_type, sender_name, content, created_at FROM (
		             SELECT id, chat_id, sender_type, sender_name, content, created_at
		             FROM messages WHERE chat_id = $1 ORDER BY created_at DESC LIMIT $2
		         ) tail ORDER BY created_at ASC`
		args = append(args, limit)
	}

	var messages []models.StoredMessage
	if err := pgxscan.Select(ctx, r.db, &messages, query, args...); err != nil {
		r.logger.Error("Failed to list messages", zap.String("chatID", chatID), zap.Error(err))
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
