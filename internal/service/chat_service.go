package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"character-chat-server/internal/ai"
	"character-chat-server/internal/catalog"
	"character-chat-server/internal/envelope"
	"character-chat-server/internal/models"
	"character-chat-server/internal/repository"
)

// historyLimit - сколько последних сообщений чата уходит в контекст модели.
const historyLimit = 20

// Notifier пушит события чата подключенным WebSocket-клиентам.
type Notifier interface {
	NotifyTyping(chatID, senderName string)
	NotifyMessage(chatID string, msg models.MessageDTO)
}

// ChatService управляет чатами с персонажами и обменом сообщениями.
type ChatService interface {
	CreateChatByID(ctx context.Context, characterID, userName string, currentUser *models.User) (*models.CreateChatResponse, error)
	SendMessage(ctx context.Context, req models.SendMessageRequest, currentUser *models.User) (*models.SendMessageResponse, error)
	ListChats(ctx context.Context, ownerID uuid.UUID) ([]models.Chat, error)
	ArchiveChat(ctx context.Context, chatID string, ownerID uuid.UUID) error
}

type chatServiceImpl struct {
	chatRepo  repository.ChatRepository
	msgRepo   repository.MessageRepository
	usage     UsageService
	usageRepo repository.UsageRepository
	responder ai.Responder
	notifier  Notifier
	logger    *zap.Logger
}

// Compile-time check
var _ ChatService = (*chatServiceImpl)(nil)

// NewChatService creates a new chat service instance.
func NewChatService(
	chatRepo repository.ChatRepository,
	msgRepo repository.MessageRepository,
	usage UsageService,
	usageRepo repository.UsageRepository,
	responder ai.Responder,
	notifier Notifier,
	logger *zap.Logger,
) ChatService {
	return &chatServiceImpl{
		chatRepo:  chatRepo,
		msgRepo:   msgRepo,
		usage:     usage,
		usageRepo: usageRepo,
		responder: responder,
		notifier:  notifier,
		logger:    logger.Named("ChatService"),
	}
}

// CreateChatByID создает чат с персонажем каталога. Для гостя владелец
// остается пустым, чат живет по своему id. Canonical id резолвится
// через таблицу алиасов.
func (s *chatServiceImpl) CreateChatByID(ctx context.Context, characterID, userName string, currentUser *models.User) (*models.CreateChatResponse, error) {
	ch, ok := catalog.ByID(characterID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCharacterNotFound, characterID)
	}

	if userName == "" {
		userName = "Guest"
		if currentUser != nil {
			userName = currentUser.Username
		}
	}

	var ownerID *uuid.UUID
	if currentUser != nil {
		ownerID = &currentUser.ID
	}

	chat := &models.Chat{
		ID:          "chat_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		Name:        fmt.Sprintf("%s x %s", userName, ch.Name),
		AIName:      ch.Name,
		AIPersona:   catalog.BuildPersona(ch),
		CharacterID: ch.ID,
		OwnerUserID: ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.chatRepo.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	greeting := &models.StoredMessage{
		ID:         "msg_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		ChatID:     chat.ID,
		SenderType: models.SenderAI,
		SenderName: ch.Name,
		Content:    ch.Greeting,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.msgRepo.AddMessage(ctx, greeting); err != nil {
		return nil, err
	}

	s.logger.Info("Chat created",
		zap.String("chatID", chat.ID), zap.String("characterID", ch.ID))

	return &models.CreateChatResponse{
		ChatID:        chat.ID,
		HumanPlayerID: playerID(currentUser),
		AIPlayerID:    "ai_" + ch.ID,
		AIName:        ch.Name,
		Messages:      []models.MessageDTO{toDTO(greeting, "ai_"+ch.ID)},
	}, nil
}

// SendMessage - основной платный путь. Сначала списывается кредит, затем
// сохраняется сообщение пользователя, затем вызывается модель.
func (s *chatServiceImpl) SendMessage(ctx context.Context, req models.SendMessageRequest, currentUser *models.User) (*models.SendMessageResponse, error) {
	chat, err := s.findChat(ctx, req.ChatID, currentUser)
	if err != nil {
		return nil, err
	}

	var userID *uuid.UUID
	if currentUser != nil {
		userID = &currentUser.ID
	}
	if userID == nil && req.AnonID == "" {
		return nil, fmt.Errorf("%w: anon_id is required for guest messages", models.ErrBadRequest)
	}

	acc, _, err := s.usage.GetOrCreateAccount(ctx, userID, req.AnonID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.usageRepo.ConsumeCredit(ctx, acc.ID)
	if err != nil {
		if errors.Is(err, models.ErrInsufficientCredits) {
			s.logger.Debug("Message rejected, no credits",
				zap.String("chatID", chat.ID), zap.Int64("accountID", acc.ID))
		}
		return nil, err
	}

	senderName := "Guest"
	if currentUser != nil {
		senderName = currentUser.Username
	}
	userMsg := &models.StoredMessage{
		ID:         "msg_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		ChatID:     chat.ID,
		SenderType: models.SenderUser,
		SenderName: senderName,
		Content:    req.Content,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.msgRepo.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyTyping(chat.ID, chat.AIName)
	}

	history, err := s.msgRepo.ListMessages(ctx, chat.ID, historyLimit)
	if err != nil {
		return nil, err
	}

	resp := &models.SendMessageResponse{
		UserMessage:      toDTO(userMsg, req.SenderID),
		CreditsRemaining: &remaining,
	}

	replyText, aiErr := s.responder.Respond(ctx, chat.AIPersona, history)
	if aiErr != nil {
		// Кредит уже списан, пользователь получает хотя бы шаблонный ответ.
		s.logger.Warn("AI responder failed, using fallback reply",
			zap.String("chatID", chat.ID), zap.Error(aiErr))
		replyText = envelope.FallbackReply(chat.AIName, req.Content)
	}

	aiMsg := &models.StoredMessage{
		ID:         "msg_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		ChatID:     chat.ID,
		SenderType: models.SenderAI,
		SenderName: chat.AIName,
		Content:    replyText,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.msgRepo.AddMessage(ctx, aiMsg); err != nil {
		return nil, err
	}

	aiDTO := toDTO(aiMsg, "ai_"+chat.CharacterID)
	resp.AIMessage = &aiDTO

	if s.notifier != nil {
		s.notifier.NotifyMessage(chat.ID, aiDTO)
	}

	return resp, nil
}

func (s *chatServiceImpl) ListChats(ctx context.Context, ownerID uuid.UUID) ([]models.Chat, error) {
	return s.chatRepo.ListChatsByOwner(ctx, ownerID)
}

func (s *chatServiceImpl) ArchiveChat(ctx context.Context, chatID string, ownerID uuid.UUID) error {
	chat, err := s.chatRepo.GetOwnedChat(ctx, chatID, ownerID)
	if err != nil {
		return err
	}
	return s.chatRepo.ArchiveChat(ctx, chat.ID, ownerID)
}

// findChat находит чат отправителя. Зарегистрированный пользователь видит
// только свои чаты, гость - бесхозные.
func (s *chatServiceImpl) findChat(ctx context.Context, chatID string, currentUser *models.User) (*models.Chat, error) {
	if currentUser != nil {
		chat, err := s.chatRepo.GetOwnedChat(ctx, chatID, currentUser.ID)
		if err == nil {
			return chat, nil
		}
		if !errors.Is(err, models.ErrChatNotFound) {
			return nil, err
		}
	}
	chat, err := s.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.IsArchived {
		return nil, models.ErrChatNotFound
	}
	if currentUser == nil && chat.OwnerUserID != nil {
		return nil, models.ErrChatNotFound
	}
	return chat, nil
}

func playerID(currentUser *models.User) string {
	if currentUser != nil {
		return "user_" + currentUser.ID.String()
	}
	return "guest_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func toDTO(m *models.StoredMessage, senderID string) models.MessageDTO {
	return models.MessageDTO{
		ID:         m.ID,
		SenderID:   senderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Timestamp:  m.CreatedAt.UTC().Format(time.RFC3339),
		ChatID:     m.ChatID,
	}
}
