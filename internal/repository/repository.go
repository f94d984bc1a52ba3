package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"character-chat-server/internal/models"
)

// DBTX - минимальный интерфейс над pgxpool.Pool / pgx.Tx,
// позволяющий подменять соединение в тестах.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChatRepository - хранилище разговоров.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	GetOwnedChat(ctx context.Context, id string, ownerID uuid.UUID) (*models.Chat, error)
	ListChatsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Chat, error)
	ArchiveChat(ctx context.Context, id string, ownerID uuid.UUID) error
}

// MessageRepository - хранилище сообщений чатов.
type MessageRepository interface {
	AddMessage(ctx context.Context, msg *models.StoredMessage) error
	ListMessages(ctx context.Context, chatID string, limit int) ([]models.StoredMessage, error)
}

// UsageRepository - кредитный ledger.
type UsageRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UsageAccount, error)
	GetByAnonID(ctx context.Context, anonID string) (*models.UsageAccount, error)
	Create(ctx context.Context, account *models.UsageAccount) error
	// ConsumeCredit атомарно списывает один кредит; возвращает
	// models.ErrInsufficientCredits при нулевом балансе.
	ConsumeCredit(ctx context.Context, accountID int64) (remaining int, err error)
	GrantCredits(ctx context.Context, accountID int64, amount int) (remaining int, err error)
	IncrementAdsViewed(ctx context.Context, accountID int64) error
}

// LikeRepository - лайки персонажей, ключ (usage account, character).
type LikeRepository interface {
	Toggle(ctx context.Context, accountID int64, characterID string) (liked bool, err error)
	CountByCharacter(ctx context.Context) (map[string]int, error)
	CountForCharacter(ctx context.Context, characterID string) (int, error)
	LikedByAccount(ctx context.Context, accountID int64) (map[string]bool, error)
}

// AdSessionRepository - одноразовые рекламные сессии с TTL.
type AdSessionRepository interface {
	Create(ctx context.Context, session *models.AdSession) error
	Get(ctx context.Context, id string) (*models.AdSession, error)
	Update(ctx context.Context, session *models.AdSession) error
}
