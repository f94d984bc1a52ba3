package models

// DTO-типы HTTP контракта /api/interface/*.
// Используются и обработчиками сервера, и клиентом relay.

// MessageDTO - сообщение в том виде, в котором оно ходит по проводу.
type MessageDTO struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
}

type GuestInitRequest struct {
	AnonID string `json:"anon_id,omitempty"`
}

type GuestInitResponse struct {
	AnonID           string `json:"anon_id"`
	CreditsRemaining int    `json:"credits_remaining"`
	IsNew            bool   `json:"is_new"`
}

type CreateChatRequest struct {
	UserName    string `json:"user_name"`
	CharacterID string `json:"character_id"`
}

type CreateChatResponse struct {
	ChatID        string       `json:"chat_id"`
	HumanPlayerID string       `json:"human_player_id,omitempty"`
	AIPlayerID    string       `json:"ai_player_id,omitempty"`
	AIName        string       `json:"ai_name,omitempty"`
	Messages      []MessageDTO `json:"messages,omitempty"`
}

type SendMessageRequest struct {
	ChatID      string `json:"chat_id"`
	SenderID    string `json:"sender_id,omitempty"`
	Content     string `json:"content"`
	AnonID      string `json:"anon_id,omitempty"`
	CharacterID string `json:"character_id,omitempty"`
}

type SendMessageResponse struct {
	UserMessage      MessageDTO  `json:"user_message"`
	AIMessage        *MessageDTO `json:"ai_message,omitempty"`
	CreditsRemaining *int        `json:"credits_remaining,omitempty"`
}

type LikeStatusResponse struct {
	Likes     map[string]int  `json:"likes"`
	LikedByMe map[string]bool `json:"liked_by_me"`
}

type LikeToggleRequest struct {
	CharacterID string `json:"character_id"`
	AnonID      string `json:"anon_id,omitempty"`
}

type LikeToggleResponse struct {
	CharacterID string `json:"character_id"`
	LikedByMe   bool   `json:"liked_by_me"`
	LikesCount  int    `json:"likes_count"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UsageStatus struct {
	CreditsRemaining int  `json:"credits_remaining"`
	Authenticated    bool `json:"authenticated"`
	AdMinSeconds     int  `json:"ad_min_seconds"`
	AdBonusCredits   int  `json:"ad_bonus_credits"`
}

type AdStartRequest struct {
	AnonID string `json:"anon_id,omitempty"`
}

type AdStartResponse struct {
	AdSessionID  string `json:"ad_session_id"`
	AdMinSeconds int    `json:"ad_min_seconds"`
}

type AdCompleteRequest struct {
	AdSessionID    string `json:"ad_session_id"`
	WatchedSeconds int    `json:"watched_seconds"`
}

type AdCompleteResponse struct {
	Awarded          bool `json:"awarded"`
	CreditsRemaining int  `json:"credits_remaining"`
}
