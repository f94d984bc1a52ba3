package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"character-chat-server/internal/models"
)

const defaultTimeout = 60 * time.Second

// Формат ответа, который мы просим у модели. Клиентская сторона разбирает
// этот конверт в internal/envelope.
const replyFormatInstruction = `Respond using exactly this format:
**SITUATION:** one or two sentences of stage direction in third person.
**DIALOGUE:** "your spoken reply in first person"
**AFFECTION LEVEL:** an integer from 0 to 10.`

// Responder генерирует ответ персонажа на основе истории разговора.
// Интерфейс нужен, чтобы сервисы можно было тестировать без сети.
type Responder interface {
	Respond(ctx context.Context, persona string, history []models.StoredMessage) (string, error)
}

// Client - клиент AI completion API (OpenAI-совместимый эндпоинт).
type Client struct {
	openaiClient *openai.Client
	modelName    string
}

// Compile-time check
var _ Responder = (*Client)(nil)

// Config содержит настройки клиента.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewClient создает новый экземпляр клиента.
func NewClient(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		openaiClient: openai.NewClientWithConfig(config),
		modelName:    cfg.Model,
	}
}

// Respond отправляет персону и историю разговора и возвращает текст ответа.
func (c *Client) Respond(ctx context.Context, persona string, history []models.StoredMessage) (string, error) {
	messages := buildMessages(persona, history)
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	resp, err := c.openaiClient.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:    c.modelName,
			Messages: messages,
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("received empty response from API")
	}

	return resp.Choices[0].Message.Content, nil
}

// buildMessages собирает запрос: системный промпт с персоной и форматом
// ответа, затем история в хронологическом порядке.
func buildMessages(persona string, history []models.StoredMessage) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: persona + "\n\n" + replyFormatInstruction,
	})

	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.SenderType == models.SenderAI {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	return messages
}
