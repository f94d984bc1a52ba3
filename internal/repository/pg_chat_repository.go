package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
)

// pgChatRepository реализует ChatRepository для PostgreSQL.
type pgChatRepository struct {
	db     DBTX
	logger *zap.Logger
}

// Compile-time check
var _ ChatRepository = (*pgChatRepository)(nil)

// NewPgChatRepository создает новый экземпляр репозитория чатов.
func NewPgChatRepository(db DBTX, logger *zap.Logger) ChatRepository {
	return &pgChatRepository{
		db:     db,
		logger: logger.Named("PgChatRepo"),
	}
}

func (r *pgChatRepository) CreateChat(ctx context.Context, chat *models.Chat) error {
	query := `INSERT INTO chats (id, name, ai_name, ai_persona, character_id, is_archived, owner_user_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		chat.ID, chat.Name, chat.AIName, chat.AIPersona, chat.CharacterID,
		chat.IsArchived, chat.OwnerUserID, chat.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create chat", zap.String("chatID", chat.ID), zap.Error(err))
		return fmt.Errorf("failed to create chat: %w", err)
	}

	r.logger.Debug("Chat created", zap.String("chatID", chat.ID), zap.String("characterID", chat.CharacterID))
	return nil
}

func (r *pgChatRepository) GetChat(ctx context.Context, id string) (*models.Chat, error) {
	query := `SELECT id, name, ai_name, ai_persona, character_id, is_archived, owner_user_id, created_at
	          FROM chats WHERE id = $1`
	return r.scanChat(ctx, query, id)
}

func (r *pgChatRepository) GetOwnedChat(ctx context.Context, id string, ownerID uuid.UUID) (*models.Chat, error) {
	query := `SELECT id, name, ai_name, ai_persona, character_id, is_archived, owner_user_id, created_at
	          FROM chats WHERE id = $1 AND owner_user_id = $2 AND is_archived = FALSE`
	return r.scanChat(ctx, query, id, ownerID)
}

func (r *pgChatRepository) scanChat(ctx context.Context, query string, args ...any) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&chat.ID, &chat.Name, &chat.AIName, &chat.AIPersona, &chat.CharacterID,
		&chat.IsArchived, &chat.OwnerUserID, &chat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrChatNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

func (r *pgChatRepository) ListChatsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Chat, error) {
	query := `SELECT id, name, ai_name, ai_persona, character_id, is_archived, owner_user_id, created_at
	          FROM chats WHERE owner_user_id = $1 ORDER BY created_at DESC`

	var chats []models.Chat
	if err := pgxscan.Select(ctx, r.db, &chats, query, ownerID); err != nil {
		r.logger.Error("Failed to list chats", zap.String("ownerID", ownerID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (r *pgChatRepository) ArchiveChat(ctx context.Context, id string, ownerID uuid.UUID) error {
	query := `UPDATE chats SET is_archived = TRUE WHERE id = $1 AND owner_user_id = $2`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to archive chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrChatNotFound
	}
	return nil
}
