package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"character-chat-server/internal/models"
)

// Фейковые репозитории в памяти для юнит-тестов сервисов.

type fakeUsageRepo struct {
	mu       sync.Mutex
	accounts map[int64]*models.UsageAccount
	nextID   int64
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{accounts: make(map[int64]*models.UsageAccount), nextID: 1}
}

func (f *fakeUsageRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*models.UsageAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.UserID != nil && *acc.UserID == userID {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUsageRepo) GetByAnonID(_ context.Context, anonID string) (*models.UsageAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.AnonID != nil && *acc.AnonID == anonID {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUsageRepo) Create(_ context.Context, account *models.UsageAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if account.AnonID != nil && acc.AnonID != nil && *acc.AnonID == *account.AnonID {
			return models.ErrAccountAlreadyExists
		}
		if account.UserID != nil && acc.UserID != nil && *acc.UserID == *account.UserID {
			return models.ErrAccountAlreadyExists
		}
	}
	account.ID = f.nextID
	f.nextID++
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeUsageRepo) ConsumeCredit(_ context.Context, accountID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[accountID]
	if !ok {
		return 0, models.ErrNotFound
	}
	if acc.CreditsRemaining <= 0 {
		return 0, models.ErrInsufficientCredits
	}
	acc.CreditsRemaining--
	acc.TotalMessages++
	return acc.CreditsRemaining, nil
}

func (f *fakeUsageRepo) GrantCredits(_ context.Context, accountID int64, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[accountID]
	if !ok {
		return 0, models.ErrNotFound
	}
	if amount > 0 {
		acc.CreditsRemaining += amount
	}
	return acc.CreditsRemaining, nil
}

func (f *fakeUsageRepo) IncrementAdsViewed(_ context.Context, accountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[accountID]
	if !ok {
		return models.ErrNotFound
	}
	acc.TotalAdsViewed++
	return nil
}

type fakeAdRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.AdSession
}

func newFakeAdRepo() *fakeAdRepo {
	return &fakeAdRepo{sessions: make(map[string]*models.AdSession)}
}

func (f *fakeAdRepo) Create(_ context.Context, s *models.AdSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeAdRepo) Get(_ context.Context, id string) (*models.AdSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, models.ErrAdSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAdRepo) Update(_ context.Context, s *models.AdSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[s.ID]; !ok {
		return models.ErrAdSessionNotFound
	}
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

type fakeChatRepo struct {
	mu    sync.Mutex
	chats map[string]*models.Chat
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{chats: make(map[string]*models.Chat)}
}

func (f *fakeChatRepo) CreateChat(_ context.Context, chat *models.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *chat
	f.chats[chat.ID] = &cp
	return nil
}

func (f *fakeChatRepo) GetChat(_ context.Context, id string) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok {
		return nil, models.ErrChatNotFound
	}
	cp := *chat
	return &cp, nil
}

func (f *fakeChatRepo) GetOwnedChat(_ context.Context, id string, ownerID uuid.UUID) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok || chat.OwnerUserID == nil || *chat.OwnerUserID != ownerID || chat.IsArchived {
		return nil, models.ErrChatNotFound
	}
	cp := *chat
	return &cp, nil
}

func (f *fakeChatRepo) ListChatsByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Chat
	for _, chat := range f.chats {
		if chat.OwnerUserID != nil && *chat.OwnerUserID == ownerID && !chat.IsArchived {
			out = append(out, *chat)
		}
	}
	return out, nil
}

func (f *fakeChatRepo) ArchiveChat(_ context.Context, id string, ownerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	chat, ok := f.chats[id]
	if !ok || chat.OwnerUserID == nil || *chat.OwnerUserID != ownerID {
		return models.ErrChatNotFound
	}
	chat.IsArchived = true
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string][]models.StoredMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string][]models.StoredMessage)}
}

func (f *fakeMessageRepo) AddMessage(_ context.Context, msg *models.StoredMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.ChatID] = append(f.messages[msg.ChatID], *msg)
	return nil
}

func (f *fakeMessageRepo) ListMessages(_ context.Context, chatID string, limit int) ([]models.StoredMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[chatID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.StoredMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

type fakeLikeRepo struct {
	mu    sync.Mutex
	likes map[string]bool // key: accountID:characterID
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{likes: make(map[string]bool)}
}

func likeKey(accountID int64, characterID string) string {
	return strconv.FormatInt(accountID, 10) + ":" + characterID
}

func (f *fakeLikeRepo) Toggle(_ context.Context, accountID int64, characterID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := likeKey(accountID, characterID)
	f.likes[key] = !f.likes[key]
	return f.likes[key], nil
}

func (f *fakeLikeRepo) CountByCharacter(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for key, liked := range f.likes {
		if !liked {
			continue
		}
		if idx := indexByte(key, ':'); idx >= 0 {
			out[key[idx+1:]]++
		}
	}
	return out, nil
}

func (f *fakeLikeRepo) CountForCharacter(_ context.Context, characterID string) (int, error) {
	counts, _ := f.CountByCharacter(context.Background())
	return counts[characterID], nil
}

func (f *fakeLikeRepo) LikedByAccount(_ context.Context, accountID int64) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strconv.FormatInt(accountID, 10) + ":"
	out := make(map[string]bool)
	for key, liked := range f.likes {
		if liked && len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out[key[len(prefix):]] = true
		}
	}
	return out, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// fakeResponder возвращает заранее заданный ответ либо ошибку.
type fakeResponder struct {
	reply string
	err   error
	calls int
}

func (f *fakeResponder) Respond(_ context.Context, _ string, _ []models.StoredMessage) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// fakeNotifier пишет события в память.
type fakeNotifier struct {
	mu       sync.Mutex
	typing   []string
	messages []models.MessageDTO
}

func (f *fakeNotifier) NotifyTyping(chatID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, chatID)
}

func (f *fakeNotifier) NotifyMessage(_ string, msg models.MessageDTO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}
