// Package relay - HTTP клиент серверного контракта /api/interface/*.
// Каждая операция контракта представлена одним методом; не-2xx ответ
// возвращается как типизированная *APIError, чтобы вызывающий мог
// различать 402 и 404 без разбора текста.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
)

// APIError - не-2xx ответ сервера с разобранным телом.
type APIError struct {
	Status int
	Code   string
	Detail string

	// Дополнительные поля квотной ошибки 402.
	CreditsRemaining *int
	NextAction       string
	AdMinSeconds     int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("relay: status %d (%s): %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("relay: status %d: %s", e.Status, e.Detail)
}

// IsStatus reports whether err is an *APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	return false
}

// ClientConfig содержит настройки клиента.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client - клиент серверного контракта.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	authToken string
	anonID    string
}

// NewClient creates a relay client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("RelayClient"),
	}
}

// SetAuthToken задает bearer-токен для последующих запросов.
// Пустая строка сбрасывает авторизацию.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// SetAnonID задает анонимный id, уходящий в заголовке X-Anon-Id.
func (c *Client) SetAnonID(anonID string) {
	c.anonID = anonID
}

// AnonID возвращает текущий анонимный id клиента.
func (c *Client) AnonID() string {
	return c.anonID
}

// BootstrapAnonymousID подтверждает анонимный id на сервере. Имеющийся id
// отправляется в теле запроса, сервер возвращает подтвержденный. При
// недоступности сервера сохраненный id остается в силе, а без него id
// выпускается локально, чтобы клиент продолжал работать офлайн.
func (c *Client) BootstrapAnonymousID(ctx context.Context, existing string) string {
	var resp models.GuestInitResponse
	err := c.do(ctx, http.MethodPost, "/api/interface/guest/init", models.GuestInitRequest{AnonID: existing}, &resp)
	if err != nil || resp.AnonID == "" {
		if existing != "" {
			c.anonID = existing
			return existing
		}
		local := "anon_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
		c.logger.Warn("Guest init failed, using locally minted anon id", zap.Error(err))
		c.anonID = local
		return local
	}

	c.anonID = resp.AnonID
	return resp.AnonID
}

// CreateChatByID создает чат с персонажем каталога.
func (c *Client) CreateChatByID(ctx context.Context, userName, characterID string) (*models.CreateChatResponse, error) {
	var resp models.CreateChatResponse
	err := c.do(ctx, http.MethodPost, "/api/interface/chat/create_by_id",
		models.CreateChatRequest{UserName: userName, CharacterID: characterID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SendMessage отправляет сообщение в чат.
func (c *Client) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.SendMessageResponse, error) {
	if req.AnonID == "" {
		req.AnonID = c.anonID
	}
	var resp models.SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/interface/chat/send", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LikesStatus возвращает счетчики лайков каталога и отметки аккаунта.
func (c *Client) LikesStatus(ctx context.Context) (*models.LikeStatusResponse, error) {
	var resp models.LikeStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/interface/likes/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ToggleLike переключает лайк персонажа.
func (c *Client) ToggleLike(ctx context.Context, characterID string) (*models.LikeToggleResponse, error) {
	var resp models.LikeToggleResponse
	err := c.do(ctx, http.MethodPost, "/api/interface/likes/toggle",
		models.LikeToggleRequest{CharacterID: characterID, AnonID: c.anonID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register регистрирует пользователя и возвращает токен.
func (c *Client) Register(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	var resp models.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register",
		models.RegisterRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login аутентифицирует пользователя и возвращает токен.
func (c *Client) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	var resp models.TokenResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UsageStatus возвращает кредитный статус текущего аккаунта.
func (c *Client) UsageStatus(ctx context.Context) (*models.UsageStatus, error) {
	var resp models.UsageStatus
	if err := c.do(ctx, http.MethodGet, "/api/interface/usage/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartAd открывает рекламную сессию.
func (c *Client) StartAd(ctx context.Context) (*models.AdStartResponse, error) {
	var resp models.AdStartResponse
	err := c.do(ctx, http.MethodPost, "/api/interface/ad/start",
		models.AdStartRequest{AnonID: c.anonID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteAd закрывает рекламную сессию с фактическим временем просмотра.
func (c *Client) CompleteAd(ctx context.Context, adSessionID string, watchedSeconds int) (*models.AdCompleteResponse, error) {
	var resp models.AdCompleteResponse
	err := c.do(ctx, http.MethodPost, "/api/interface/ad/complete",
		models.AdCompleteRequest{AdSessionID: adSessionID, WatchedSeconds: watchedSeconds}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("failed to build request url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonID != "" {
		req.Header.Set("X-Anon-Id", c.anonID)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		apiErr.Detail = "failed to read error body"
		return apiErr
	}

	var body models.ErrorResponse
	if jsonErr := json.Unmarshal(data, &body); jsonErr == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Detail = body.Message
		apiErr.CreditsRemaining = body.CreditsRemaining
		apiErr.NextAction = body.NextAction
		apiErr.AdMinSeconds = body.AdMinSeconds
		return apiErr
	}

	apiErr.Detail = strings.TrimSpace(string(data))
	return apiErr
}
