package models

import (
	"time"

	"github.com/google/uuid"
)

// Sender tags for chat messages.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Character - неизменяемая запись каталога персонажей.
// Мутируются только Likes и транзиентный флаг LikedByMe.
type Character struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	NovelTitle      string   `json:"novel_title"`
	Genre           string   `json:"genre"`
	Keywords        []string `json:"keywords"`
	Likes           int      `json:"likes"`
	LikedByMe       bool     `json:"liked_by_me,omitempty"`
	ImageCardURL    string   `json:"image_card_url"`
	ImageProfileURL string   `json:"image_profile_url"`
	ImageIconURL    string   `json:"image_icon_url"`
	VideoCardURL    string   `json:"video_card_url,omitempty"`
	Greeting        string   `json:"greeting,omitempty"`
	Description     string   `json:"description,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Persona         string   `json:"persona,omitempty"`
	WorldSetting    string   `json:"world_setting,omitempty"`
}

// User - зарегистрированный пользователь (серверная сторона).
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Chat - серверная запись разговора с персонажем.
type Chat struct {
	ID          string     `json:"chat_id" db:"id"`
	Name        string     `json:"name" db:"name"`
	AIName      string     `json:"ai_name" db:"ai_name"`
	AIPersona   string     `json:"-" db:"ai_persona"`
	CharacterID string     `json:"character_id" db:"character_id"`
	IsArchived  bool       `json:"is_archived" db:"is_archived"`
	OwnerUserID *uuid.UUID `json:"-" db:"owner_user_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// StoredMessage - сохраненное сообщение чата (серверная сторона).
type StoredMessage struct {
	ID         string    `json:"id" db:"id"`
	ChatID     string    `json:"chat_id" db:"chat_id"`
	SenderType string    `json:"sender_type" db:"sender_type"` // user | ai
	SenderName string    `json:"sender_name" db:"sender_name"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// UsageAccount - кредитный счет (анонимный или привязанный к пользователю).
type UsageAccount struct {
	ID               int64      `json:"id" db:"id"`
	UserID           *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	AnonID           *string    `json:"anon_id,omitempty" db:"anon_id"`
	CreditsRemaining int        `json:"credits_remaining" db:"credits_remaining"`
	TotalMessages    int        `json:"total_messages" db:"total_messages"`
	TotalAdsViewed   int        `json:"total_ads_viewed" db:"total_ads_viewed"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// AdSession statuses.
const (
	AdSessionStarted   = "started"
	AdSessionCompleted = "completed"
	AdSessionCanceled  = "canceled"
)

// AdSession - одноразовая сессия просмотра рекламы.
type AdSession struct {
	ID             string    `json:"ad_session_id"`
	AccountID      int64     `json:"account_id"`
	Status         string    `json:"status"`
	WatchedSeconds int       `json:"watched_seconds"`
	StartedAt      time.Time `json:"started_at"`
}
