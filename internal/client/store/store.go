// Package store реализует клиентскую машину состояний: сессии чатов,
// кредитный гейтинг, модальные диалоги и оптимистичные лайки. Все мутации
// сериализуются одним мьютексом, после каждой состояние снапшотится
// в SnapshotRepository.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"character-chat-server/internal/client/relay"
	"character-chat-server/internal/models"
)

// Пороговые значения гейтинга.
const (
	freeGlobalMessageLimit = 5  // сообщений до принудительной регистрации
	perCharacterLimit      = 10 // сообщений персонажу до просмотра рекламы
	maxAdsPerDay           = 5
	recentCapacity         = 12
	defaultSidebarWidth    = 320
	// Привязка к серверному чату пересоздается не больше одного раза за отправку
	maxSendAttempts = 2
)

// Relay - операции серверного контракта, нужные машине состояний.
type Relay interface {
	BootstrapAnonymousID(ctx context.Context, existing string) string
	CreateChatByID(ctx context.Context, userName, characterID string) (*models.CreateChatResponse, error)
	SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.SendMessageResponse, error)
	LikesStatus(ctx context.Context) (*models.LikeStatusResponse, error)
	ToggleLike(ctx context.Context, characterID string) (*models.LikeToggleResponse, error)
	Register(ctx context.Context, username, password string) (*models.TokenResponse, error)
	Login(ctx context.Context, username, password string) (*models.TokenResponse, error)
	UsageStatus(ctx context.Context) (*models.UsageStatus, error)
	StartAd(ctx context.Context) (*models.AdStartResponse, error)
	CompleteAd(ctx context.Context, adSessionID string, watchedSeconds int) (*models.AdCompleteResponse, error)
	SetAuthToken(token string)
	SetAnonID(anonID string)
}

// Compile-time check
var _ Relay = (*relay.Client)(nil)

// Result - исход валидируемой операции. Причина отказа возвращается
// вызывающему для встраивания в форму, а не паникой или ошибкой.
type Result struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func ok() Result                { return Result{OK: true} }
func fail(reason string) Result { return Result{Reason: reason} }

// Store владеет состоянием клиента и выполняет все переходы.
type Store struct {
	mu     sync.Mutex
	state  *State
	relay  Relay
	repo   SnapshotRepository
	logger *zap.Logger

	// Подменяются в тестах
	now   func() time.Time
	newID func() string
}

// New создает Store, восстанавливая состояние из репозитория, если
// снапшот есть; иначе стартует с чистого состояния над переданным каталогом.
func New(relay Relay, repo SnapshotRepository, characters []models.Character, logger *zap.Logger) (*Store, error) {
	st, err := repo.Load()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = NewState(characters)
	}

	s := &Store{
		state:  st,
		relay:  relay,
		repo:   repo,
		logger: logger.Named("Store"),
		now:    time.Now,
		newID:  func() string { return "m_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16] },
	}

	if st.AnonID != "" {
		relay.SetAnonID(st.AnonID)
	}
	if st.AuthToken != "" {
		relay.SetAuthToken(st.AuthToken)
	}
	return s, nil
}

// Bootstrap получает анонимный id и подтягивает кредитный статус.
// Вызывается один раз при старте клиента; обе операции переживают
// недоступность сервера.
func (s *Store) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	existing := s.state.AnonID
	s.mu.Unlock()

	anonID := s.relay.BootstrapAnonymousID(ctx, existing)

	s.mu.Lock()
	s.state.AnonID = anonID
	s.persistLocked()
	s.mu.Unlock()

	s.RefreshUsage(ctx)
	s.RefreshLikes(ctx)
}

// RefreshUsage подтягивает кредитный статус. До первого успешного ответа
// UsageReady остается false и отправка заблокирована.
func (s *Store) RefreshUsage(ctx context.Context) {
	status, err := s.relay.UsageStatus(ctx)
	if err != nil {
		s.logger.Warn("Failed to refresh usage status", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CreditsRemaining = status.CreditsRemaining
	s.state.Authenticated = status.Authenticated
	s.state.UsageReady = true
	s.state.PaymentRequired = status.CreditsRemaining <= 0
	if status.AdMinSeconds > 0 {
		s.state.AdMinSeconds = status.AdMinSeconds
	}
	if status.AdBonusCredits > 0 {
		s.state.AdBonusCredits = status.AdBonusCredits
	}
	s.persistLocked()
}

// RefreshLikes накатывает серверные счетчики лайков на каталог.
func (s *Store) RefreshLikes(ctx context.Context) {
	status, err := s.relay.LikesStatus(ctx)
	if err != nil {
		s.logger.Debug("Failed to refresh likes", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Characters {
		id := s.state.Characters[i].ID
		if n, okCount := status.Likes[id]; okCount {
			s.state.Characters[i].Likes = n
		}
		s.state.Characters[i].LikedByMe = status.LikedByMe[id]
	}
	s.persistLocked()
}

// Snapshot возвращает копию состояния для чтения. Вложенные структуры
// копируются поверхностно: вызывающий не должен их мутировать.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.state
}

// SetSidebarWidth сохраняет ширину боковой панели.
func (s *Store) SetSidebarWidth(width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 {
		s.state.SidebarWidth = width
		s.persistLocked()
	}
}

// persistLocked снапшотит состояние fire-and-forget. Ошибка записи
// не прерывает переход, только логируется.
func (s *Store) persistLocked() {
	if err := s.repo.Save(s.state); err != nil {
		s.logger.Warn("Failed to persist state snapshot", zap.Error(err))
	}
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

func (s *Store) username() string {
	if s.state.Profile != nil && s.state.Profile.Username != "" {
		return s.state.Profile.Username
	}
	return "Guest"
}
