package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"character-chat-server/internal/catalog"
	"character-chat-server/internal/client/relay"
	"character-chat-server/internal/models"
)

// fakeRelay - программируемый ретранслятор для тестов машины состояний.
type fakeRelay struct {
	mu          sync.Mutex
	createCalls int
	sendCalls   int

	createFn func(userName, characterID string) (*models.CreateChatResponse, error)
	sendFn   func(req models.SendMessageRequest) (*models.SendMessageResponse, error)
	toggleFn func(characterID string) (*models.LikeToggleResponse, error)
	loginFn  func(username, password string) (*models.TokenResponse, error)

	anonID    string
	authToken string
}

func (f *fakeRelay) BootstrapAnonymousID(_ context.Context, existing string) string {
	if existing != "" {
		return existing
	}
	return "anon_fake"
}

func (f *fakeRelay) CreateChatByID(_ context.Context, userName, characterID string) (*models.CreateChatResponse, error) {
	f.mu.Lock()
	f.createCalls++
	n := f.createCalls
	f.mu.Unlock()
	if f.createFn != nil {
		return f.createFn(userName, characterID)
	}
	return &models.CreateChatResponse{
		ChatID:        fmt.Sprintf("chat_%d", n),
		HumanPlayerID: "player_1",
		AIPlayerID:    "ai_" + characterID,
	}, nil
}

func (f *fakeRelay) SendMessage(_ context.Context, req models.SendMessageRequest) (*models.SendMessageResponse, error) {
	f.mu.Lock()
	f.sendCalls++
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(req)
	}
	credits := 4
	return &models.SendMessageResponse{
		UserMessage:      models.MessageDTO{Content: req.Content},
		AIMessage:        &models.MessageDTO{Content: `**DIALOGUE:** "Indeed."`},
		CreditsRemaining: &credits,
	}, nil
}

func (f *fakeRelay) LikesStatus(context.Context) (*models.LikeStatusResponse, error) {
	return &models.LikeStatusResponse{Likes: map[string]int{}, LikedByMe: map[string]bool{}}, nil
}

func (f *fakeRelay) ToggleLike(_ context.Context, characterID string) (*models.LikeToggleResponse, error) {
	if f.toggleFn != nil {
		return f.toggleFn(characterID)
	}
	return &models.LikeToggleResponse{CharacterID: characterID, LikedByMe: true, LikesCount: 1}, nil
}

func (f *fakeRelay) Register(_ context.Context, username, _ string) (*models.TokenResponse, error) {
	return &models.TokenResponse{AccessToken: "tok_" + username, TokenType: "bearer"}, nil
}

func (f *fakeRelay) Login(_ context.Context, username, password string) (*models.TokenResponse, error) {
	if f.loginFn != nil {
		return f.loginFn(username, password)
	}
	return &models.TokenResponse{AccessToken: "tok_" + username, TokenType: "bearer"}, nil
}

func (f *fakeRelay) UsageStatus(context.Context) (*models.UsageStatus, error) {
	return &models.UsageStatus{CreditsRemaining: 5, AdMinSeconds: 13, AdBonusCredits: 10}, nil
}

func (f *fakeRelay) StartAd(context.Context) (*models.AdStartResponse, error) {
	return &models.AdStartResponse{AdSessionID: "ad_1", AdMinSeconds: 13}, nil
}

func (f *fakeRelay) CompleteAd(_ context.Context, _ string, watchedSeconds int) (*models.AdCompleteResponse, error) {
	return &models.AdCompleteResponse{Awarded: watchedSeconds >= 13, CreditsRemaining: 15}, nil
}

func (f *fakeRelay) SetAuthToken(token string) { f.authToken = token }
func (f *fakeRelay) SetAnonID(anonID string)   { f.anonID = anonID }

func apiErr(status, code string) error {
	var s int
	switch status {
	case "404":
		s = http.StatusNotFound
	case "402":
		s = http.StatusPaymentRequired
	}
	return &relay.APIError{Status: s, Code: code}
}

func newTestStore(t *testing.T, r *fakeRelay) *Store {
	t.Helper()
	s, err := New(r, NewMemorySnapshotRepository(), catalog.All(), zap.NewNop())
	require.NoError(t, err)

	var seq int
	s.newID = func() string {
		seq++
		return fmt.Sprintf("m_%d", seq)
	}

	// Кредитный статус как после успешного Bootstrap
	s.state.UsageReady = true
	s.state.CreditsRemaining = 5
	return s
}

func TestOpenSession_Idempotent(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()

	first := s.OpenSession(ctx, "riftan")
	require.NotNil(t, first)
	second := s.OpenSession(ctx, "riftan")
	require.NotNil(t, second)

	assert.Same(t, first, second)
	// Ровно одно приветствие, без дубликатов
	require.Len(t, first.Messages, 1)
	assert.Equal(t, models.SenderAI, first.Messages[0].Sender)
	assert.Equal(t, 1, r.createCalls)
}

func TestOpenSession_UnknownCharacter(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	assert.Nil(t, s.OpenSession(context.Background(), "nobody"))
}

func TestOpenSession_SurvivesCorrelationFailure(t *testing.T) {
	r := &fakeRelay{createFn: func(string, string) (*models.CreateChatResponse, error) {
		return nil, errors.New("backend down")
	}}
	s := newTestStore(t, r)

	sess := s.OpenSession(context.Background(), "riftan")
	require.NotNil(t, sess)
	assert.Nil(t, sess.Correlation)
	require.Len(t, sess.Messages, 1) // локальное приветствие на месте
}

func TestRecentlyOpened_BoundedMostRecentFirst(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()

	ids := make([]string, 0, recentCapacity+3)
	for i := 0; i < recentCapacity+3; i++ {
		id := fmt.Sprintf("c%d", i)
		ids = append(ids, id)
		s.state.Characters = append(s.state.Characters, models.Character{ID: id, Name: id})
	}
	for _, id := range ids {
		s.OpenSession(ctx, id)
	}

	st := s.Snapshot()
	require.Len(t, st.RecentlyOpened, recentCapacity)
	assert.Equal(t, ids[len(ids)-1], st.RecentlyOpened[0])

	// Повторное открытие поднимает персонажа в голову без дубликата
	s.OpenSession(ctx, ids[5])
	st = s.Snapshot()
	assert.Equal(t, ids[5], st.RecentlyOpened[0])
	assert.Len(t, st.RecentlyOpened, recentCapacity)
	seen := make(map[string]bool)
	for _, id := range st.RecentlyOpened {
		assert.False(t, seen[id], "duplicate %s in recently opened", id)
		seen[id] = true
	}
}

func TestSendMessage_NoSessionIsSilentNoop(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)

	assert.False(t, s.SendMessage(context.Background(), "riftan", "hello"))
	assert.Equal(t, 0, r.sendCalls)
}

func TestSendMessage_EmptyInputIsNoop(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")

	assert.False(t, s.SendMessage(ctx, "riftan", "   "))
	assert.False(t, s.SendMessage(ctx, "riftan", ""))
	assert.Len(t, sess.Messages, 1)
}

func TestSendMessage_AppendsUserAndReply(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")

	require.True(t, s.SendMessage(ctx, "riftan", "hello**we are in the hall"))

	require.Len(t, sess.Messages, 3)
	userMsg := sess.Messages[1]
	assert.Equal(t, models.SenderUser, userMsg.Sender)
	assert.Equal(t, "hello", userMsg.Dialogue)
	assert.Equal(t, "we are in the hall", userMsg.Situation)

	aiMsg := sess.Messages[2]
	assert.Equal(t, models.SenderAI, aiMsg.Sender)
	assert.Equal(t, "Indeed.", aiMsg.Dialogue)
	assert.False(t, sess.IsTyping)

	st := s.Snapshot()
	assert.Equal(t, 4, st.CreditsRemaining) // сервер авторитетен по балансу
}

func TestSendMessage_BlockedBeforeUsageReady(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")
	s.state.UsageReady = false

	assert.False(t, s.SendMessage(ctx, "riftan", "hello"))
	assert.Len(t, sess.Messages, 1)
	assert.Equal(t, 0, r.sendCalls)
}

func TestSendMessage_CreditExhaustionBlocksSend(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")

	s.state.CreditsRemaining = 0

	assert.False(t, s.SendMessage(ctx, "riftan", "hello"))
	// Сообщение не добавлено, поднят гейтинговый диалог
	assert.Len(t, sess.Messages, 1)
	st := s.Snapshot()
	assert.Equal(t, ModalRegistration, st.ActiveModal.Kind)
	assert.Equal(t, "riftan", st.ActiveModal.CharacterID)

	// Для зарегистрированного пользователя тот же гейт ведет к рекламе
	s.state.IsRegistered = true
	s.state.ActiveModal = Modal{}
	assert.False(t, s.SendMessage(ctx, "riftan", "hello"))
	assert.Equal(t, ModalWatchAd, s.Snapshot().ActiveModal.Kind)
}

func TestSendMessage_RegistrationThreshold(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	s.state.CreditsRemaining = 100

	for i := 0; i < freeGlobalMessageLimit-1; i++ {
		require.True(t, s.SendMessage(ctx, "riftan", "hello"))
		assert.Equal(t, ModalNone, s.Snapshot().ActiveModal.Kind, "message %d must not gate", i+1)
	}

	// Пятое сообщение доводит глобальный счетчик до порога
	require.True(t, s.SendMessage(ctx, "riftan", "hello"))
	st := s.Snapshot()
	assert.Equal(t, ModalRegistration, st.ActiveModal.Kind)
	assert.Equal(t, freeGlobalMessageLimit, st.GlobalMessageCount)
}

func TestSendMessage_AdThresholds(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	s.state.CreditsRemaining = 100
	s.state.IsRegistered = true
	gate := s.state.gate("riftan")
	gate.MessageCount = perCharacterLimit - 1

	require.True(t, s.SendMessage(ctx, "riftan", "hello"))
	assert.Equal(t, ModalWatchAd, s.Snapshot().ActiveModal.Kind)

	// С исчерпанным дневным лимитом рекламы вместо рекламы конец дня
	gate.MessageCount = perCharacterLimit - 1
	gate.AdViewsToday = maxAdsPerDay
	gate.LastAdViewDate = s.today()
	s.state.ActiveModal = Modal{}

	require.True(t, s.SendMessage(ctx, "riftan", "hello"))
	assert.Equal(t, ModalEndOfChats, s.Snapshot().ActiveModal.Kind)
}

func TestSendMessage_LockedChatDoesNotGate(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	s.state.CreditsRemaining = 100
	s.state.GlobalMessageCount = freeGlobalMessageLimit
	s.state.gate("riftan").IsChatLocked = true

	require.True(t, s.SendMessage(ctx, "riftan", "hello"))
	assert.Equal(t, ModalNone, s.Snapshot().ActiveModal.Kind)
}

func TestSendMessage_StaleChatRetriesExactlyOnce(t *testing.T) {
	r := &fakeRelay{}
	r.sendFn = func(req models.SendMessageRequest) (*models.SendMessageResponse, error) {
		if req.ChatID == "chat_1" {
			return nil, apiErr("404", models.ErrCodeChatNotFound)
		}
		credits := 3
		return &models.SendMessageResponse{
			AIMessage:        &models.MessageDTO{Content: `**DIALOGUE:** "Back again."`},
			CreditsRemaining: &credits,
		}, nil
	}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan") // привязка chat_1

	require.True(t, s.SendMessage(ctx, "riftan", "hello"))

	// Одно пересоздание чата и одна повторная отправка
	assert.Equal(t, 2, r.createCalls)
	assert.Equal(t, 2, r.sendCalls)
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, "Back again.", sess.Messages[2].Dialogue)
	assert.Equal(t, "chat_2", sess.Correlation.ChatID)
}

func TestSendMessage_SecondStaleFailureGivesUp(t *testing.T) {
	r := &fakeRelay{}
	r.sendFn = func(models.SendMessageRequest) (*models.SendMessageResponse, error) {
		return nil, apiErr("404", models.ErrCodeChatNotFound)
	}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")

	require.True(t, s.SendMessage(ctx, "riftan", "hello"))

	// Второй подряд 404 не ретраится, индикатор печати снят
	assert.Equal(t, 2, r.createCalls)
	assert.Equal(t, 2, r.sendCalls)
	assert.False(t, sess.IsTyping)
	// Ответ не появился: только приветствие и сообщение пользователя
	assert.Len(t, sess.Messages, 2)
}

func TestSendMessage_QuotaFailureOpensModal(t *testing.T) {
	r := &fakeRelay{}
	r.sendFn = func(models.SendMessageRequest) (*models.SendMessageResponse, error) {
		return nil, apiErr("402", models.ErrCodeInsufficientCredits)
	}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")

	require.True(t, s.SendMessage(ctx, "riftan", "hello"))

	st := s.Snapshot()
	assert.Equal(t, 0, st.CreditsRemaining)
	assert.True(t, st.PaymentRequired)
	assert.Equal(t, ModalRegistration, st.ActiveModal.Kind)
	// Системное объяснение добавлено как сообщение персонажа
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, models.SenderAI, sess.Messages[2].Sender)
	assert.Contains(t, sess.Messages[2].Dialogue, "credits")
	assert.False(t, sess.IsTyping)
}

func TestSendMessage_NetworkFailureFallsBackToLocalReply(t *testing.T) {
	r := &fakeRelay{}
	r.sendFn = func(models.SendMessageRequest) (*models.SendMessageResponse, error) {
		return nil, errors.New("connection refused")
	}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")

	require.True(t, s.SendMessage(ctx, "riftan", "hello"))

	// Чат не остается без ответа
	require.Len(t, sess.Messages, 3)
	assert.Equal(t, models.SenderAI, sess.Messages[2].Sender)
	assert.NotEmpty(t, sess.Messages[2].Dialogue)
	assert.False(t, sess.IsTyping)
}

func TestCorrelation_RecreatedOnAuthChange(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	sess := s.OpenSession(ctx, "riftan")
	require.Equal(t, "chat_1", sess.Correlation.ChatID)

	// Вход в аккаунт делает гостевую привязку устаревшей
	require.True(t, s.SignIn(ctx, "alice", "secret1").OK)
	require.True(t, s.SendMessage(ctx, "riftan", "hello"))

	assert.Equal(t, 2, r.createCalls)
	assert.Equal(t, "chat_2", sess.Correlation.ChatID)
	assert.True(t, sess.Correlation.Authed)
}

func TestHandleModalAction_Register(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	s.state.GlobalMessageCount = freeGlobalMessageLimit
	s.state.gate("riftan").MessageCount = 4
	s.state.ActiveModal = Modal{Kind: ModalRegistration, CharacterID: "riftan"}

	s.HandleModalAction(ctx, "riftan", ActionRegister)

	st := s.Snapshot()
	assert.True(t, st.IsRegistered)
	assert.Equal(t, 0, st.GlobalMessageCount)
	assert.Equal(t, 0, st.Gates["riftan"].MessageCount)
	assert.False(t, st.Gates["riftan"].IsChatLocked)
	assert.Equal(t, ModalNone, st.ActiveModal.Kind)
	assert.True(t, st.UsageReady)
}

func TestHandleModalAction_WatchAdLazyDailyReset(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	gate := s.state.gate("riftan")
	gate.AdViewsToday = maxAdsPerDay
	gate.LastAdViewDate = "2026-08-29" // вчера
	gate.MessageCount = perCharacterLimit

	s.HandleModalAction(ctx, "riftan", ActionWatchAd)

	st := s.Snapshot()
	g := st.Gates["riftan"]
	// Счетчик прошлого дня сброшен, сегодняшний просмотр учтен
	assert.Equal(t, 1, g.AdViewsToday)
	assert.Equal(t, "2026-08-30", g.LastAdViewDate)
	assert.Equal(t, 0, g.MessageCount)
	assert.Equal(t, ModalNone, st.ActiveModal.Kind)
}

func TestHandleModalAction_WatchAdAtDailyLimitIsNoop(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	gate := s.state.gate("riftan")
	gate.AdViewsToday = maxAdsPerDay
	gate.LastAdViewDate = s.today()
	gate.MessageCount = perCharacterLimit
	s.state.ActiveModal = Modal{Kind: ModalWatchAd, CharacterID: "riftan"}

	s.HandleModalAction(ctx, "riftan", ActionWatchAd)

	st := s.Snapshot()
	assert.Equal(t, maxAdsPerDay, st.Gates["riftan"].AdViewsToday)
	assert.Equal(t, perCharacterLimit, st.Gates["riftan"].MessageCount)
	// Диалог не закрыт: вызывающий уводит пользователя в endOfChats
	assert.Equal(t, ModalWatchAd, st.ActiveModal.Kind)
}

func TestHandleModalAction_LockChat(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")
	s.state.ActiveModal = Modal{Kind: ModalWatchAd, CharacterID: "riftan"}

	s.HandleModalAction(ctx, "riftan", ActionLockChat)

	st := s.Snapshot()
	assert.True(t, st.Gates["riftan"].IsChatLocked)
	assert.Equal(t, ModalNone, st.ActiveModal.Kind)
}

func TestToggleLike_OptimisticWithServerConfirm(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()

	s.ToggleLike(ctx, "riftan")

	st := s.Snapshot()
	idx, found := st.findCharacter("riftan")
	require.True(t, found)
	assert.True(t, st.Characters[idx].LikedByMe)
	assert.Equal(t, 1, st.Characters[idx].Likes)
}

func TestToggleLike_RollbackOnFailure(t *testing.T) {
	r := &fakeRelay{toggleFn: func(string) (*models.LikeToggleResponse, error) {
		return nil, errors.New("network down")
	}}
	s := newTestStore(t, r)
	ctx := context.Background()

	idx, found := s.state.findCharacter("riftan")
	require.True(t, found)
	s.state.Characters[idx].Likes = 7
	before := s.state.Characters[idx]

	s.ToggleLike(ctx, "riftan")

	// Снапшот до переключения восстановлен точно: и флаг, и счетчик
	st := s.Snapshot()
	assert.Equal(t, before.Likes, st.Characters[idx].Likes)
	assert.Equal(t, before.LikedByMe, st.Characters[idx].LikedByMe)
}

func TestWatchAd_FullLifecycle(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")
	s.state.IsRegistered = true
	s.state.gate("riftan").MessageCount = perCharacterLimit
	s.state.ActiveModal = Modal{Kind: ModalWatchAd, CharacterID: "riftan"}

	res := s.WatchAd(ctx, "riftan", 14)
	require.True(t, res.OK)

	st := s.Snapshot()
	assert.Equal(t, 15, st.CreditsRemaining)
	assert.Equal(t, 1, st.Gates["riftan"].AdViewsToday)
	assert.Equal(t, 0, st.Gates["riftan"].MessageCount)
	assert.Equal(t, ModalNone, st.ActiveModal.Kind)
	assert.Empty(t, st.AdSessionID)
}

func TestWatchAd_TooShort(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	res := s.WatchAd(ctx, "riftan", 5)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Reason)
	assert.Equal(t, 0, s.Snapshot().Gates["riftan"].AdViewsToday)
}

func TestUpdateProfile_Validation(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()

	res := s.UpdateProfile(ctx, "", "pw")
	assert.False(t, res.OK)

	require.True(t, s.UpdateProfile(ctx, "alice", "secret1").OK)

	dup := s.UpdateProfile(ctx, "alice", "other")
	assert.False(t, dup.OK)
	assert.Equal(t, "username is already taken", dup.Reason)
}

func TestUpdateProfile_ResolvesRegistrationGate(t *testing.T) {
	r := &fakeRelay{}
	s := newTestStore(t, r)
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	// Пятое сообщение гостя поднимает регистрационный диалог
	s.state.GlobalMessageCount = freeGlobalMessageLimit - 1
	require.True(t, s.SendMessage(ctx, "riftan", "hello"))
	require.Equal(t, ModalRegistration, s.Snapshot().ActiveModal.Kind)

	require.True(t, s.UpdateProfile(ctx, "alice", "secret1").OK)

	st := s.Snapshot()
	assert.True(t, st.IsRegistered)
	assert.Equal(t, 0, st.GlobalMessageCount)
	assert.Equal(t, 0, st.Gates["riftan"].MessageCount)
	assert.False(t, st.Gates["riftan"].IsChatLocked)
	assert.Equal(t, ModalNone, st.ActiveModal.Kind)
	assert.Equal(t, 5, st.CreditsRemaining)
	assert.Equal(t, "tok_alice", r.authToken)

	// Следующее сообщение проходит без повторного диалога
	require.True(t, s.SendMessage(ctx, "riftan", "again"))
	assert.Equal(t, ModalNone, s.Snapshot().ActiveModal.Kind)
}

func TestSignIn_ClosesStaleRegistrationModal(t *testing.T) {
	s := newTestStore(t, &fakeRelay{})
	ctx := context.Background()
	s.OpenSession(ctx, "riftan")

	s.state.GlobalMessageCount = freeGlobalMessageLimit
	s.state.ActiveModal = Modal{Kind: ModalRegistration, CharacterID: "riftan"}

	require.True(t, s.SignIn(ctx, "alice", "secret1").OK)

	st := s.Snapshot()
	assert.True(t, st.IsRegistered)
	assert.Equal(t, 0, st.GlobalMessageCount)
	assert.Equal(t, ModalNone, st.ActiveModal.Kind)
}

func TestSignIn_SurfacesServerReason(t *testing.T) {
	r := &fakeRelay{loginFn: func(string, string) (*models.TokenResponse, error) {
		return nil, &relay.APIError{Status: http.StatusUnauthorized,
			Code: models.ErrCodeWrongCredentials, Detail: "Invalid username or password"}
	}}
	s := newTestStore(t, r)

	res := s.SignIn(context.Background(), "alice", "wrong")
	assert.False(t, res.OK)
	assert.Equal(t, "Invalid username or password", res.Reason)
}

func TestSnapshot_RoundTripThroughRepository(t *testing.T) {
	repo := NewMemorySnapshotRepository()
	r := &fakeRelay{}
	s, err := New(r, repo, catalog.All(), zap.NewNop())
	require.NoError(t, err)
	s.state.UsageReady = true
	s.state.CreditsRemaining = 5
	ctx := context.Background()

	s.OpenSession(ctx, "riftan")
	require.True(t, s.SendMessage(ctx, "riftan", "hello"))
	s.SetSidebarWidth(411)

	// Второй стор поднимается из того же снапшота
	restored, err := New(r, repo, nil, zap.NewNop())
	require.NoError(t, err)

	st := restored.Snapshot()
	require.Contains(t, st.Sessions, "riftan")
	assert.Len(t, st.Sessions["riftan"].Messages, 3)
	assert.Equal(t, 411, st.SidebarWidth)
	assert.Equal(t, []string{"riftan"}, st.RecentlyOpened)
}
