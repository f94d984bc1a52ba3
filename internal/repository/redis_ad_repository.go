package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
)

// redisAdSessionRepository хранит одноразовые рекламные сессии в Redis с TTL.
// Сессия, не завершенная до истечения TTL, просто исчезает.
type redisAdSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// Compile-time check
var _ AdSessionRepository = (*redisAdSessionRepository)(nil)

// NewRedisAdSessionRepository создает Redis-репозиторий рекламных сессий.
func NewRedisAdSessionRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) AdSessionRepository {
	return &redisAdSessionRepository{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisAdRepo"),
	}
}

func adSessionKey(id string) string {
	return fmt.Sprintf("ad_session:%s", id)
}

func (r *redisAdSessionRepository) Create(ctx context.Context, session *models.AdSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal ad session: %w", err)
	}

	if err := r.client.Set(ctx, adSessionKey(session.ID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to store ad session", zap.String("adSessionID", session.ID), zap.Error(err))
		return fmt.Errorf("failed to store ad session: %w", err)
	}

	r.logger.Debug("Ad session stored",
		zap.String("adSessionID", session.ID), zap.Int64("accountID", session.AccountID))
	return nil
}

func (r *redisAdSessionRepository) Get(ctx context.Context, id string) (*models.AdSession, error) {
	data, err := r.client.Get(ctx, adSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrAdSessionNotFound
		}
		return nil, fmt.Errorf("failed to get ad session: %w", err)
	}

	var session models.AdSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ad session: %w", err)
	}
	return &session, nil
}

// Update перезаписывает сессию с сохранением оставшегося TTL.
func (r *redisAdSessionRepository) Update(ctx context.Context, session *models.AdSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal ad session: %w", err)
	}

	ok, err := r.client.SetXX(ctx, adSessionKey(session.ID), data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to update ad session: %w", err)
	}
	if !ok {
		return models.ErrAdSessionNotFound
	}
	return nil
}
