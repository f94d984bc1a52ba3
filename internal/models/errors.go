package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found") // General not found

	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthorized       = errors.New("unauthorized")

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Chat & Catalog Errors
	ErrChatNotFound      = errors.New("chat not found")
	ErrCharacterNotFound = errors.New("character not found")
	ErrNotParticipant    = errors.New("sender is not a chat participant")

	// Credits & Ad Errors
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrAdSessionNotFound    = errors.New("ad session not found")
	ErrAccountAlreadyExists = errors.New("usage account already exists")

	// Like Errors
	ErrLikeNotFound = errors.New("like not found")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
