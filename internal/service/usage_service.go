package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
	"character-chat-server/internal/repository"
)

// UsageConfig - экономика кредитов и рекламы.
type UsageConfig struct {
	InitialFreeCredits int
	SignupBonusCredits int
	AdBonusCredits     int
	AdMinWatchSeconds  int
}

// UsageService управляет кредитными счетами и рекламными сессиями.
type UsageService interface {
	// GetOrCreateAccount возвращает счет пользователя либо анонимный счет.
	// Пустой anonID без пользователя означает выпуск нового анонимного id.
	GetOrCreateAccount(ctx context.Context, userID *uuid.UUID, anonID string) (*models.UsageAccount, bool, error)
	Status(ctx context.Context, userID *uuid.UUID, anonID string) (*models.UsageStatus, error)
	GrantSignupBonus(ctx context.Context, userID uuid.UUID) error
	StartAd(ctx context.Context, userID *uuid.UUID, anonID string) (*models.AdStartResponse, error)
	CompleteAd(ctx context.Context, adSessionID string, watchedSeconds int) (*models.AdCompleteResponse, error)
}

type usageServiceImpl struct {
	usageRepo repository.UsageRepository
	adRepo    repository.AdSessionRepository
	cfg       UsageConfig
	logger    *zap.Logger
}

// Compile-time check
var _ UsageService = (*usageServiceImpl)(nil)

// NewUsageService creates a new usage service instance.
func NewUsageService(usageRepo repository.UsageRepository, adRepo repository.AdSessionRepository, cfg UsageConfig, logger *zap.Logger) UsageService {
	return &usageServiceImpl{
		usageRepo: usageRepo,
		adRepo:    adRepo,
		cfg:       cfg,
		logger:    logger.Named("UsageService"),
	}
}

// NewAnonID выпускает новый анонимный идентификатор.
func NewAnonID() string {
	return "anon_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func (s *usageServiceImpl) GetOrCreateAccount(ctx context.Context, userID *uuid.UUID, anonID string) (*models.UsageAccount, bool, error) {
	if userID != nil {
		acc, err := s.usageRepo.GetByUserID(ctx, *userID)
		if err == nil {
			return acc, false, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, false, err
		}
		// Счет зарегистрированного пользователя начинается с нуля;
		// бонус за регистрацию начисляется отдельно.
		acc = &models.UsageAccount{UserID: userID, CreatedAt: time.Now().UTC()}
		if err := s.createOrRefetch(ctx, acc, func() (*models.UsageAccount, error) {
			return s.usageRepo.GetByUserID(ctx, *userID)
		}); err != nil {
			return nil, false, err
		}
		return acc, true, nil
	}

	if anonID == "" {
		anonID = NewAnonID()
	} else if acc, err := s.usageRepo.GetByAnonID(ctx, anonID); err == nil {
		return acc, false, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}

	acc := &models.UsageAccount{
		AnonID:           &anonID,
		CreditsRemaining: s.cfg.InitialFreeCredits,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.createOrRefetch(ctx, acc, func() (*models.UsageAccount, error) {
		return s.usageRepo.GetByAnonID(ctx, anonID)
	}); err != nil {
		return nil, false, err
	}
	return acc, true, nil
}

// createOrRefetch создает счет; при гонке двух первых запросов перечитывает
// уже созданную другим запросом строку.
func (s *usageServiceImpl) createOrRefetch(ctx context.Context, acc *models.UsageAccount, refetch func() (*models.UsageAccount, error)) error {
	err := s.usageRepo.Create(ctx, acc)
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrAccountAlreadyExists) {
		existing, rerr := refetch()
		if rerr != nil {
			return fmt.Errorf("failed to refetch usage account after conflict: %w", rerr)
		}
		*acc = *existing
		return nil
	}
	return err
}

func (s *usageServiceImpl) Status(ctx context.Context, userID *uuid.UUID, anonID string) (*models.UsageStatus, error) {
	acc, _, err := s.GetOrCreateAccount(ctx, userID, anonID)
	if err != nil {
		return nil, err
	}
	return &models.UsageStatus{
		CreditsRemaining: acc.CreditsRemaining,
		Authenticated:    userID != nil,
		AdMinSeconds:     s.cfg.AdMinWatchSeconds,
		AdBonusCredits:   s.cfg.AdBonusCredits,
	}, nil
}

func (s *usageServiceImpl) GrantSignupBonus(ctx context.Context, userID uuid.UUID) error {
	acc, _, err := s.GetOrCreateAccount(ctx, &userID, "")
	if err != nil {
		return err
	}
	if _, err := s.usageRepo.GrantCredits(ctx, acc.ID, s.cfg.SignupBonusCredits); err != nil {
		return fmt.Errorf("failed to grant signup bonus: %w", err)
	}
	s.logger.Info("Signup bonus granted",
		zap.String("userID", userID.String()), zap.Int("amount", s.cfg.SignupBonusCredits))
	return nil
}

func (s *usageServiceImpl) StartAd(ctx context.Context, userID *uuid.UUID, anonID string) (*models.AdStartResponse, error) {
	acc, _, err := s.GetOrCreateAccount(ctx, userID, anonID)
	if err != nil {
		return nil, err
	}

	session := &models.AdSession{
		ID:        "ad_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16],
		AccountID: acc.ID,
		Status:    models.AdSessionStarted,
		StartedAt: time.Now().UTC(),
	}
	if err := s.adRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &models.AdStartResponse{
		AdSessionID:  session.ID,
		AdMinSeconds: s.cfg.AdMinWatchSeconds,
	}, nil
}

// CompleteAd закрывает рекламную сессию. Повторное завершение идемпотентно:
// возвращается уже принятое решение без повторного начисления.
func (s *usageServiceImpl) CompleteAd(ctx context.Context, adSessionID string, watchedSeconds int) (*models.AdCompleteResponse, error) {
	session, err := s.adRepo.Get(ctx, adSessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == models.AdSessionCompleted || session.Status == models.AdSessionCanceled {
		acc, findErr := s.findAccount(ctx, session.AccountID)
		if findErr != nil {
			return nil, findErr
		}
		return &models.AdCompleteResponse{
			Awarded:          session.Status == models.AdSessionCompleted,
			CreditsRemaining: acc.CreditsRemaining,
		}, nil
	}

	session.WatchedSeconds = watchedSeconds
	awarded := watchedSeconds >= s.cfg.AdMinWatchSeconds

	var remaining int
	if awarded {
		session.Status = models.AdSessionCompleted
		remaining, err = s.usageRepo.GrantCredits(ctx, session.AccountID, s.cfg.AdBonusCredits)
		if err != nil {
			return nil, err
		}
		if err := s.usageRepo.IncrementAdsViewed(ctx, session.AccountID); err != nil {
			return nil, err
		}
		s.logger.Info("Ad completed, bonus granted",
			zap.String("adSessionID", adSessionID), zap.Int("watchedSeconds", watchedSeconds))
	} else {
		session.Status = models.AdSessionCanceled
		acc, findErr := s.findAccount(ctx, session.AccountID)
		if findErr != nil {
			return nil, findErr
		}
		remaining = acc.CreditsRemaining
		s.logger.Debug("Ad canceled, watch time below threshold",
			zap.String("adSessionID", adSessionID), zap.Int("watchedSeconds", watchedSeconds))
	}

	if err := s.adRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	return &models.AdCompleteResponse{Awarded: awarded, CreditsRemaining: remaining}, nil
}

// findAccount достает счет по внутреннему id. Отдельного метода в репозитории
// нет, поэтому нулевое начисление используется как атомарное чтение баланса.
func (s *usageServiceImpl) findAccount(ctx context.Context, accountID int64) (*models.UsageAccount, error) {
	remaining, err := s.usageRepo.GrantCredits(ctx, accountID, 0)
	if err != nil {
		return nil, err
	}
	return &models.UsageAccount{ID: accountID, CreditsRemaining: remaining}, nil
}
