package store

import (
	"time"

	"character-chat-server/internal/models"
)

// ModalKind идентифицирует активный блокирующий диалог.
type ModalKind string

const (
	ModalNone         ModalKind = ""
	ModalRegistration ModalKind = "userRegistration"
	ModalWatchAd      ModalKind = "watchAd"
	ModalEndOfChats   ModalKind = "endOfChats"
)

// Действия, которыми закрывается модальный диалог.
const (
	ActionRegister = "register"
	ActionWatchAd  = "watchAd"
	ActionLockChat = "lockChat"
)

// ChatMessage - одно сообщение сессии. Список сообщений только растет.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"` // user | ai
	Dialogue  string    `json:"dialogue"`
	Situation string    `json:"situation,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Correlation - привязка локальной сессии к серверному чату.
// Authed фиксирует контекст авторизации на момент создания: смена
// пользователя делает привязку устаревшей.
type Correlation struct {
	ChatID        string `json:"chat_id"`
	HumanPlayerID string `json:"human_player_id,omitempty"`
	AIPlayerID    string `json:"ai_player_id,omitempty"`
	Authed        bool   `json:"authed"`
}

// Session - разговор с одним персонажем. Ровно одна сессия на персонажа.
type Session struct {
	ID          string        `json:"id"`
	CharacterID string        `json:"character_id"`
	Messages    []ChatMessage `json:"messages"`
	Correlation *Correlation  `json:"correlation,omitempty"`
	IsTyping    bool          `json:"-"` // транзиентный флаг, не переживает снапшот
}

// GateState - пер-персонажные счетчики гейтинга.
type GateState struct {
	MessageCount   int    `json:"message_count"`
	AdViewsToday   int    `json:"ad_views_today"`
	LastAdViewDate string `json:"last_ad_view_date,omitempty"` // YYYY-MM-DD
	IsChatLocked   bool   `json:"is_chat_locked"`
}

// Modal - активный модальный диалог, максимум один за раз.
type Modal struct {
	Kind        ModalKind `json:"kind"`
	CharacterID string    `json:"character_id,omitempty"`
}

// Profile - локальный профиль пользователя.
type Profile struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// State - полное состояние клиента. Все мутации идут через Store,
// снапшот целиком уходит в SnapshotRepository после каждого изменения.
type State struct {
	Profile         *Profile        `json:"profile,omitempty"`
	RegisteredUsers map[string]bool `json:"registered_users"`
	IsRegistered    bool            `json:"is_registered"`

	GlobalMessageCount int `json:"global_message_count"`

	Characters     []models.Character    `json:"characters"`
	Sessions       map[string]*Session   `json:"sessions"` // ключ: id персонажа
	Gates          map[string]*GateState `json:"gates"`    // ключ: id персонажа
	RecentlyOpened []string              `json:"recently_opened"`
	SidebarWidth   int                   `json:"sidebar_width"`

	ActiveModal Modal `json:"active_modal"`

	CreditsRemaining int  `json:"credits_remaining"`
	UsageReady       bool `json:"usage_ready"`
	PaymentRequired  bool `json:"payment_required"`

	AnonID        string `json:"anon_id"`
	AuthToken     string `json:"auth_token,omitempty"`
	Authenticated bool   `json:"authenticated"`

	AdSessionID    string `json:"ad_session_id,omitempty"`
	AdMinSeconds   int    `json:"ad_min_seconds"`
	AdBonusCredits int    `json:"ad_bonus_credits"`
}

// NewState возвращает состояние свежего клиента с каталогом персонажей.
func NewState(characters []models.Character) *State {
	return &State{
		RegisteredUsers: make(map[string]bool),
		Characters:      characters,
		Sessions:        make(map[string]*Session),
		Gates:           make(map[string]*GateState),
		SidebarWidth:    defaultSidebarWidth,
		AdMinSeconds:    13,
		AdBonusCredits:  10,
	}
}

// normalize чинит nil-карты после десериализации старых снапшотов.
func (st *State) normalize() {
	if st.RegisteredUsers == nil {
		st.RegisteredUsers = make(map[string]bool)
	}
	if st.Sessions == nil {
		st.Sessions = make(map[string]*Session)
	}
	if st.Gates == nil {
		st.Gates = make(map[string]*GateState)
	}
}

// gate возвращает счетчики персонажа, создавая нулевые при первом обращении.
func (st *State) gate(characterID string) *GateState {
	g, ok := st.Gates[characterID]
	if !ok {
		g = &GateState{}
		st.Gates[characterID] = g
	}
	return g
}

func (st *State) findCharacter(characterID string) (int, bool) {
	for i := range st.Characters {
		if st.Characters[i].ID == characterID {
			return i, true
		}
	}
	return 0, false
}
