package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"character-chat-server/internal/catalog"
	"character-chat-server/internal/models"
	"character-chat-server/internal/repository"
)

// LikeService - лайки персонажей каталога.
type LikeService interface {
	Status(ctx context.Context, userID *uuid.UUID, anonID string) (*models.LikeStatusResponse, error)
	Toggle(ctx context.Context, userID *uuid.UUID, anonID, characterID string) (*models.LikeToggleResponse, error)
}

type likeServiceImpl struct {
	likeRepo repository.LikeRepository
	usage    UsageService
	logger   *zap.Logger
}

// Compile-time check
var _ LikeService = (*likeServiceImpl)(nil)

// NewLikeService creates a new like service instance.
func NewLikeService(likeRepo repository.LikeRepository, usage UsageService, logger *zap.Logger) LikeService {
	return &likeServiceImpl{
		likeRepo: likeRepo,
		usage:    usage,
		logger:   logger.Named("LikeService"),
	}
}

// Status возвращает счетчики лайков по всему каталогу и отметки текущего
// аккаунта. Персонажи без лайков присутствуют в ответе с нулем.
func (s *likeServiceImpl) Status(ctx context.Context, userID *uuid.UUID, anonID string) (*models.LikeStatusResponse, error) {
	acc, _, err := s.usage.GetOrCreateAccount(ctx, userID, anonID)
	if err != nil {
		return nil, err
	}

	counts, err := s.likeRepo.CountByCharacter(ctx)
	if err != nil {
		return nil, err
	}
	mine, err := s.likeRepo.LikedByAccount(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	resp := &models.LikeStatusResponse{
		Likes:     make(map[string]int),
		LikedByMe: make(map[string]bool),
	}
	for _, ch := range catalog.All() {
		resp.Likes[ch.ID] = counts[ch.ID]
		resp.LikedByMe[ch.ID] = mine[ch.ID]
	}
	return resp, nil
}

// Toggle переключает лайк и возвращает актуальный счетчик персонажа.
func (s *likeServiceImpl) Toggle(ctx context.Context, userID *uuid.UUID, anonID, characterID string) (*models.LikeToggleResponse, error) {
	ch, ok := catalog.ByID(characterID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCharacterNotFound, characterID)
	}

	acc, _, err := s.usage.GetOrCreateAccount(ctx, userID, anonID)
	if err != nil {
		return nil, err
	}

	liked, err := s.likeRepo.Toggle(ctx, acc.ID, ch.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.likeRepo.CountForCharacter(ctx, ch.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Like toggled",
		zap.String("characterID", ch.ID), zap.Bool("liked", liked))

	return &models.LikeToggleResponse{
		CharacterID: ch.ID,
		LikedByMe:   liked,
		LikesCount:  count,
	}, nil
}
