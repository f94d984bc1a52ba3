package store

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"character-chat-server/internal/client/relay"
	"character-chat-server/internal/envelope"
	"character-chat-server/internal/models"
)

// OpenSession открывает (или возвращает существующую) сессию персонажа.
// Идемпотентна: повторный вызов не добавляет второе приветствие. Привязка
// к серверному чату создается по возможности; без нее сессия живет локально.
func (s *Store) OpenSession(ctx context.Context, characterID string) *Session {
	s.mu.Lock()
	if sess, exists := s.state.Sessions[characterID]; exists {
		s.touchRecentLocked(characterID)
		s.persistLocked()
		s.mu.Unlock()
		return sess
	}

	idx, found := s.state.findCharacter(characterID)
	if !found {
		s.mu.Unlock()
		return nil
	}
	ch := s.state.Characters[idx]

	sess := &Session{
		ID:          s.newID(),
		CharacterID: characterID,
		Messages: []ChatMessage{{
			ID:        s.newID(),
			Sender:    models.SenderAI,
			Dialogue:  ch.Greeting,
			CreatedAt: s.now(),
		}},
	}
	s.state.Sessions[characterID] = sess
	s.state.gate(characterID)
	s.touchRecentLocked(characterID)
	userName := s.username()
	s.mu.Unlock()

	// Привязка создается без блокировки: сетевой вызов не должен держать стор
	resp, err := s.relay.CreateChatByID(ctx, userName, characterID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Debug("Chat correlation deferred, session stays local",
			zap.String("characterID", characterID), zap.Error(err))
	} else {
		sess.Correlation = &Correlation{
			ChatID:        resp.ChatID,
			HumanPlayerID: resp.HumanPlayerID,
			AIPlayerID:    resp.AIPlayerID,
			Authed:        s.state.AuthToken != "",
		}
	}
	s.persistLocked()
	return sess
}

// touchRecentLocked ставит персонажа в голову списка недавно открытых.
// Список ограничен recentCapacity, без дубликатов.
func (s *Store) touchRecentLocked(characterID string) {
	recent := make([]string, 0, recentCapacity)
	recent = append(recent, characterID)
	for _, id := range s.state.RecentlyOpened {
		if id == characterID {
			continue
		}
		if len(recent) == recentCapacity {
			break
		}
		recent = append(recent, id)
	}
	s.state.RecentlyOpened = recent
}

// SendMessage проводит исходящее сообщение через гейтинг и ретранслятор.
// Возвращает false, если сообщение не было принято (нет сессии, пустой
// ввод или сработал гейт).
func (s *Store) SendMessage(ctx context.Context, characterID, rawInput string) bool {
	s.mu.Lock()

	sess, exists := s.state.Sessions[characterID]
	if !exists {
		s.mu.Unlock()
		return false
	}

	// Кредитный гейт: пока статус не загружен или кредиты исчерпаны,
	// сообщение не принимается, вместо него поднимается модальный диалог
	if !s.state.UsageReady || s.state.CreditsRemaining <= 0 {
		s.activateGatingModalLocked(characterID)
		s.persistLocked()
		s.mu.Unlock()
		return false
	}

	input := envelope.SplitInput(rawInput)
	if input.IsEmpty() {
		s.mu.Unlock()
		return false
	}

	// Оптимистичное добавление: пользователь видит свое сообщение сразу
	sess.Messages = append(sess.Messages, ChatMessage{
		ID:        s.newID(),
		Sender:    models.SenderUser,
		Dialogue:  input.Dialogue,
		Situation: input.Situation,
		CreatedAt: s.now(),
	})
	sess.IsTyping = true

	gate := s.state.gate(characterID)
	gate.MessageCount++
	if !s.state.IsRegistered {
		s.state.GlobalMessageCount++
	}
	s.persistLocked()

	content := envelope.ComposeContent(input)
	s.mu.Unlock()

	s.deliver(ctx, characterID, sess, content)

	s.mu.Lock()
	s.evaluateGateLocked(characterID)
	s.persistLocked()
	s.mu.Unlock()
	return true
}

// deliver гонит сообщение на сервер с ограниченным ретраем: устаревшая
// привязка (404) пересоздается и отправка повторяется ровно один раз.
func (s *Store) deliver(ctx context.Context, characterID string, sess *Session, content string) {
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		corr, err := s.ensureCorrelation(ctx, characterID, sess, attempt > 1)
		if err != nil {
			s.appendFallbackReply(characterID, sess, content)
			return
		}

		resp, err := s.relay.SendMessage(ctx, models.SendMessageRequest{
			ChatID:      corr.ChatID,
			SenderID:    corr.HumanPlayerID,
			Content:     content,
			CharacterID: characterID,
		})
		if err == nil {
			s.applyReply(sess, resp)
			return
		}

		if relay.IsStatus(err, http.StatusNotFound) {
			// Серверный чат умер; на повторном 404 сдаемся молча
			if attempt == maxSendAttempts {
				s.clearTyping(sess)
				return
			}
			s.logger.Debug("Stale chat correlation, recreating",
				zap.String("characterID", characterID))
			continue
		}

		if relay.IsStatus(err, http.StatusPaymentRequired) {
			s.applyCreditExhaustion(characterID, sess)
			return
		}

		// Любой другой сбой: локальный шаблонный ответ вместо зависшего чата
		s.logger.Debug("Send failed, falling back to local reply", zap.Error(err))
		s.appendFallbackReply(characterID, sess, content)
		return
	}
}

// ensureCorrelation гарантирует живую привязку к серверному чату.
// Привязка пересоздается, если ее нет, изменился контекст авторизации
// или вызывающий явно требует новую (после 404).
func (s *Store) ensureCorrelation(ctx context.Context, characterID string, sess *Session, force bool) (*Correlation, error) {
	s.mu.Lock()
	authed := s.state.AuthToken != ""
	corr := sess.Correlation
	userName := s.username()
	s.mu.Unlock()

	if !force && corr != nil && corr.Authed == authed {
		return corr, nil
	}

	resp, err := s.relay.CreateChatByID(ctx, userName, characterID)
	if err != nil {
		return nil, err
	}

	corr = &Correlation{
		ChatID:        resp.ChatID,
		HumanPlayerID: resp.HumanPlayerID,
		AIPlayerID:    resp.AIPlayerID,
		Authed:        authed,
	}
	s.mu.Lock()
	sess.Correlation = corr
	s.persistLocked()
	s.mu.Unlock()
	return corr, nil
}

// applyReply разбирает ответ сервера и добавляет сообщение персонажа.
func (s *Store) applyReply(sess *Session, resp *models.SendMessageResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if resp.CreditsRemaining != nil {
		s.state.CreditsRemaining = *resp.CreditsRemaining
		s.state.PaymentRequired = *resp.CreditsRemaining <= 0
	}

	if resp.AIMessage != nil {
		parsed := envelope.ParseReply(resp.AIMessage.Content)
		msg := ChatMessage{
			ID:        s.newID(),
			Sender:    models.SenderAI,
			CreatedAt: s.now(),
		}
		if parsed.Structured {
			msg.Dialogue = parsed.Dialogue
			msg.Situation = parsed.Situation
		} else {
			msg.Dialogue = parsed.Text
		}
		sess.Messages = append(sess.Messages, msg)
	}

	sess.IsTyping = false
	s.persistLocked()
}

// applyCreditExhaustion обрабатывает 402: кредиты обнуляются, в чат
// добавляется системное объяснение, поднимается гейтинговый диалог.
// Это ожидаемая ветка управления, не ошибка.
func (s *Store) applyCreditExhaustion(characterID string, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CreditsRemaining = 0
	s.state.PaymentRequired = true

	sess.Messages = append(sess.Messages, ChatMessage{
		ID:        s.newID(),
		Sender:    models.SenderAI,
		Dialogue:  "You are out of credits. Register or watch an ad to keep chatting.",
		CreatedAt: s.now(),
	})
	sess.IsTyping = false

	s.activateGatingModalLocked(characterID)
	s.persistLocked()
}

// appendFallbackReply добавляет локальный шаблонный ответ, чтобы чат
// никогда не оставался без реакции персонажа.
func (s *Store) appendFallbackReply(characterID string, sess *Session, userText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := characterID
	if idx, found := s.state.findCharacter(characterID); found {
		name = s.state.Characters[idx].Name
	}

	parsed := envelope.ParseReply(envelope.FallbackReply(name, userText))
	sess.Messages = append(sess.Messages, ChatMessage{
		ID:        s.newID(),
		Sender:    models.SenderAI,
		Dialogue:  parsed.Dialogue,
		Situation: parsed.Situation,
		CreatedAt: s.now(),
	})
	sess.IsTyping = false
	s.persistLocked()
}

func (s *Store) clearTyping(sess *Session) {
	s.mu.Lock()
	sess.IsTyping = false
	s.persistLocked()
	s.mu.Unlock()
}
