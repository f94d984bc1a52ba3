package models

// Короткие машинные коды ошибок для тела ответа.
const (
	ErrCodeBadRequest          = "bad_request"
	ErrCodeValidation          = "validation_error"
	ErrCodeWrongCredentials    = "wrong_credentials"
	ErrCodeDuplicateUser       = "duplicate_user"
	ErrCodeUserNotFound        = "user_not_found"
	ErrCodeTokenInvalid        = "token_invalid"
	ErrCodeTokenExpired        = "token_expired"
	ErrCodeChatNotFound        = "chat_not_found"
	ErrCodeCharacterNotFound   = "character_not_found"
	ErrCodeInsufficientCredits = "insufficient_credits"
	ErrCodeAdSessionNotFound   = "ad_session_not_found"
	ErrCodeInternal            = "internal_error"
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Code    string `json:"error"`
	Message string `json:"message,omitempty"`

	// Дополнительные поля для квотных ошибок (402).
	CreditsRemaining *int   `json:"credits_remaining,omitempty"`
	NextAction       string `json:"next_action,omitempty"`
	AdMinSeconds     int    `json:"ad_min_seconds,omitempty"`
}
