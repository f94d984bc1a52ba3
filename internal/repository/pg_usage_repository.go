package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
)

// pgUsageRepository реализует UsageRepository для PostgreSQL.
type pgUsageRepository struct {
	db     DBTX
	logger *zap.Logger
}

// Compile-time check
var _ UsageRepository = (*pgUsageRepository)(nil)

// NewPgUsageRepository создает новый экземпляр кредитного ledger'а.
func NewPgUsageRepository(db DBTX, logger *zap.Logger) UsageRepository {
	return &pgUsageRepository{
		db:     db,
		logger: logger.Named("PgUsageRepo"),
	}
}

const usageColumns = `id, user_id, anon_id, credits_remaining, total_messages, total_ads_viewed, created_at`

func (r *pgUsageRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UsageAccount, error) {
	query := `SELECT ` + usageColumns + ` FROM usage_accounts WHERE user_id = $1`
	return r.scanAccount(ctx, query, userID)
}

func (r *pgUsageRepository) GetByAnonID(ctx context.Context, anonID string) (*models.UsageAccount, error) {
	query := `SELECT ` + usageColumns + ` FROM usage_accounts WHERE anon_id = $1`
	return r.scanAccount(ctx, query, anonID)
}

func (r *pgUsageRepository) scanAccount(ctx context.Context, query string, arg any) (*models.UsageAccount, error) {
	var acc models.UsageAccount
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&acc.ID, &acc.UserID, &acc.AnonID, &acc.CreditsRemaining,
		&acc.TotalMessages, &acc.TotalAdsViewed, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get usage account: %w", err)
	}
	return &acc, nil
}

func (r *pgUsageRepository) Create(ctx context.Context, account *models.UsageAccount) error {
	query := `INSERT INTO usage_accounts (user_id, anon_id, credits_remaining, total_messages, total_ads_viewed, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	err := r.db.QueryRow(ctx, query,
		account.UserID, account.AnonID, account.CreditsRemaining,
		account.TotalMessages, account.TotalAdsViewed, account.CreatedAt).Scan(&account.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			// Счет уже существует (гонка двух первых запросов)
			return models.ErrAccountAlreadyExists
		}
		r.logger.Error("Failed to create usage account", zap.Error(err))
		return fmt.Errorf("failed to create usage account: %w", err)
	}

	r.logger.Info("Usage account created", zap.Int64("accountID", account.ID))
	return nil
}

// ConsumeCredit атомарно списывает один кредит и инкрементирует счетчик
// сообщений. Нулевой баланс - ожидаемая бизнес-ветка, не ошибка БД.
func (r *pgUsageRepository) ConsumeCredit(ctx context.Context, accountID int64) (int, error) {
	query := `UPDATE usage_accounts
	          SET credits_remaining = credits_remaining - 1,
	              total_messages = total_messages + 1
	          WHERE id = $1 AND credits_remaining > 0
	          RETURNING credits_remaining`

	var remaining int
	err := r.db.QueryRow(ctx, query, accountID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrInsufficientCredits
		}
		return 0, fmt.Errorf("failed to consume credit: %w", err)
	}
	return remaining, nil
}

func (r *pgUsageRepository) GrantCredits(ctx context.Context, accountID int64, amount int) (int, error) {
	if amount < 0 {
		amount = 0
	}
	query := `UPDATE usage_accounts SET credits_remaining = credits_remaining + $2
	          WHERE id = $1 RETURNING credits_remaining`

	var remaining int
	err := r.db.QueryRow(ctx, query, accountID, amount).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrNotFound
		}
		return 0, fmt.Errorf("failed to grant credits: %w", err)
	}

	r.logger.Debug("Credits granted",
		zap.Int64("accountID", accountID), zap.Int("amount", amount), zap.Int("remaining", remaining))
	return remaining, nil
}

func (r *pgUsageRepository) IncrementAdsViewed(ctx context.Context, accountID int64) error {
	query := `UPDATE usage_accounts SET total_ads_viewed = total_ads_viewed + 1 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("failed to increment ads viewed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
