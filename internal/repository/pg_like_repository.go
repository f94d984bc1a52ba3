package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// pgLikeRepository реализует LikeRepository для PostgreSQL.
type pgLikeRepository struct {
	db     DBTX
	logger *zap.Logger
}

// Compile-time check
var _ LikeRepository = (*pgLikeRepository)(nil)

// NewPgLikeRepository создает новый экземпляр репозитория лайков.
func NewPgLikeRepository(db DBTX, logger *zap.Logger) LikeRepository {
	return &pgLikeRepository{
		db:     db,
		logger: logger.Named("PgLikeRepo"),
	}
}

// Toggle переключает лайк аккаунта для персонажа и возвращает новое состояние.
// Отсутствующая строка означает "не лайкнуто" и создается со значением TRUE.
func (r *pgLikeRepository) Toggle(ctx context.Context, accountID int64, characterID string) (bool, error) {
	query := `INSERT INTO character_likes (usage_account_id, character_id, liked)
	          VALUES ($1, $2, TRUE)
	          ON CONFLICT (usage_account_id, character_id)
	          DO UPDATE SET liked = NOT character_likes.liked
	          RETURNING liked`

	var liked bool
	if err := r.db.QueryRow(ctx, query, accountID, characterID).Scan(&liked); err != nil {
		r.logger.Error("Failed to toggle like",
			zap.Int64("accountID", accountID), zap.String("characterID", characterID), zap.Error(err))
		return false, fmt.Errorf("failed to toggle like: %w", err)
	}

	r.logger.Debug("Like toggled",
		zap.Int64("accountID", accountID), zap.String("characterID", characterID), zap.Bool("liked", liked))
	return liked, nil
}

func (r *pgLikeRepository) CountByCharacter(ctx context.Context) (map[string]int, error) {
	query := `SELECT character_id, COUNT(*) FROM character_likes WHERE liked GROUP BY character_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var characterID string
		var count int
		if err := rows.Scan(&characterID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan like count: %w", err)
		}
		counts[characterID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate like counts: %w", err)
	}
	return counts, nil
}

func (r *pgLikeRepository) CountForCharacter(ctx context.Context, characterID string) (int, error) {
	query := `SELECT COUNT(*) FROM character_likes WHERE character_id = $1 AND liked`

	var count int
	if err := r.db.QueryRow(ctx, query, characterID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count likes for character: %w", err)
	}
	return count, nil
}

func (r *pgLikeRepository) LikedByAccount(ctx context.Context, accountID int64) (map[string]bool, error) {
	query := `SELECT character_id, liked FROM character_likes WHERE usage_account_id = $1`

	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get likes for account: %w", err)
	}
	defer rows.Close()

	liked := make(map[string]bool)
	for rows.Next() {
		var characterID string
		var isLiked bool
		if err := rows.Scan(&characterID, &isLiked); err != nil {
			return nil, fmt.Errorf("failed to scan like row: %w", err)
		}
		liked[characterID] = isLiked
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate like rows: %w", err)
	}
	return liked, nil
}
