package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"character-chat-server/internal/client/relay"
	"character-chat-server/internal/models"
)

// evaluateGateLocked - реактивная политика гейтинга. Вызывается после
// каждого изменения счетчиков сообщений, регистрации или рекламы.
func (s *Store) evaluateGateLocked(characterID string) {
	gate := s.state.gate(characterID)
	if gate.IsChatLocked {
		return
	}

	switch {
	case !s.state.IsRegistered && s.state.GlobalMessageCount >= freeGlobalMessageLimit:
		s.state.ActiveModal = Modal{Kind: ModalRegistration, CharacterID: characterID}
	case s.state.IsRegistered && gate.MessageCount >= perCharacterLimit:
		if s.effectiveAdViewsLocked(gate) < maxAdsPerDay {
			s.state.ActiveModal = Modal{Kind: ModalWatchAd, CharacterID: characterID}
		} else {
			// Дневной лимит рекламы исчерпан, на сегодня все
			s.state.ActiveModal = Modal{Kind: ModalEndOfChats, CharacterID: characterID}
		}
	}
}

// activateGatingModalLocked поднимает диалог при кредитной блокировке.
func (s *Store) activateGatingModalLocked(characterID string) {
	if !s.state.IsRegistered {
		s.state.ActiveModal = Modal{Kind: ModalRegistration, CharacterID: characterID}
	} else {
		s.state.ActiveModal = Modal{Kind: ModalWatchAd, CharacterID: characterID}
	}
}

// effectiveAdViewsLocked учитывает ленивый суточный сброс: счетчик
// прошлых дней не ограничивает сегодняшние просмотры.
func (s *Store) effectiveAdViewsLocked(gate *GateState) int {
	if gate.LastAdViewDate != s.today() {
		return 0
	}
	return gate.AdViewsToday
}

// completeRegistrationLocked применяет переход регистрации: глобальный
// счетчик обнуляется, гейт персонажа снимается, активный диалог
// закрывается. Пустой characterID берется из активного диалога.
func (s *Store) completeRegistrationLocked(characterID string) {
	if characterID == "" {
		characterID = s.state.ActiveModal.CharacterID
	}
	s.state.IsRegistered = true
	s.state.GlobalMessageCount = 0
	if characterID != "" {
		gate := s.state.gate(characterID)
		gate.MessageCount = 0
		gate.IsChatLocked = false
	}
	s.state.ActiveModal = Modal{}
	s.persistLocked()
}

// HandleModalAction разрешает активный модальный диалог.
func (s *Store) HandleModalAction(ctx context.Context, characterID, action string) {
	s.mu.Lock()
	gate := s.state.gate(characterID)

	switch action {
	case ActionRegister:
		s.completeRegistrationLocked(characterID)
		s.mu.Unlock()
		// Регистрация меняет кредитный баланс, перечитываем статус
		s.RefreshUsage(ctx)
		return

	case ActionWatchAd:
		if gate.LastAdViewDate != s.today() {
			gate.AdViewsToday = 0
		}
		if gate.AdViewsToday >= maxAdsPerDay {
			// Лимит на сегодня исчерпан, диалог разрешает endOfChats
			s.mu.Unlock()
			return
		}
		gate.AdViewsToday++
		gate.LastAdViewDate = s.today()
		gate.MessageCount = 0
		gate.IsChatLocked = false
		s.state.ActiveModal = Modal{}

	case ActionLockChat:
		gate.IsChatLocked = true
		s.state.ActiveModal = Modal{}
	}

	s.persistLocked()
	s.mu.Unlock()
}

// ToggleLike - оптимистичный лайк: локальный флип применяется сразу,
// при отказе сервера восстанавливается снапшот каталога до изменения.
func (s *Store) ToggleLike(ctx context.Context, characterID string) {
	s.mu.Lock()
	idx, found := s.state.findCharacter(characterID)
	if !found {
		s.mu.Unlock()
		return
	}

	before := make([]models.Character, len(s.state.Characters))
	copy(before, s.state.Characters)

	ch := &s.state.Characters[idx]
	if ch.LikedByMe {
		ch.LikedByMe = false
		ch.Likes--
	} else {
		ch.LikedByMe = true
		ch.Likes++
	}
	s.persistLocked()
	s.mu.Unlock()

	resp, err := s.relay.ToggleLike(ctx, characterID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// Откат к снапшоту до переключения
		s.logger.Debug("Like toggle rejected, rolling back", zap.Error(err))
		s.state.Characters = before
		s.persistLocked()
		return
	}
	// Сервер авторитетен по счетчику
	if idx, found := s.state.findCharacter(resp.CharacterID); found {
		s.state.Characters[idx].Likes = resp.LikesCount
		s.state.Characters[idx].LikedByMe = resp.LikedByMe
	}
	s.persistLocked()
}

// WatchAd проводит полный рекламный цикл для персонажа: открывает сессию,
// закрывает ее с фактическим временем просмотра и при начислении бонуса
// применяет переход ActionWatchAd.
func (s *Store) WatchAd(ctx context.Context, characterID string, watchedSeconds int) Result {
	start, err := s.relay.StartAd(ctx)
	if err != nil {
		return fail("ad service is unavailable")
	}

	s.mu.Lock()
	s.state.AdSessionID = start.AdSessionID
	s.persistLocked()
	s.mu.Unlock()

	done, err := s.relay.CompleteAd(ctx, start.AdSessionID, watchedSeconds)

	s.mu.Lock()
	s.state.AdSessionID = ""
	s.mu.Unlock()

	if err != nil {
		return fail("failed to settle ad session")
	}
	if !done.Awarded {
		return fail("ad was not watched long enough")
	}

	s.mu.Lock()
	s.state.CreditsRemaining = done.CreditsRemaining
	s.state.PaymentRequired = done.CreditsRemaining <= 0
	s.persistLocked()
	s.mu.Unlock()

	s.HandleModalAction(ctx, characterID, ActionWatchAd)
	return ok()
}

// UpdateProfile регистрирует пользователя. Отказы валидации возвращаются
// структурированным результатом для встраивания в форму. Успех сам
// завершает переход регистрации, регистрационный диалог закрывается.
func (s *Store) UpdateProfile(ctx context.Context, username, password string) Result {
	if username == "" || password == "" {
		return fail("username and password are required")
	}

	s.mu.Lock()
	if s.state.RegisteredUsers[username] {
		s.mu.Unlock()
		return fail("username is already taken")
	}
	s.mu.Unlock()

	token, err := s.relay.Register(ctx, username, password)
	if err != nil {
		return fail(relayReason(err, "registration failed"))
	}

	s.mu.Lock()
	s.state.Profile = &Profile{Username: username, Password: password}
	s.state.RegisteredUsers[username] = true
	s.state.AuthToken = token.AccessToken
	s.state.Authenticated = true
	s.completeRegistrationLocked("")
	s.mu.Unlock()

	s.relay.SetAuthToken(token.AccessToken)
	// Регистрация начисляет бонусные кредиты, перечитываем статус
	s.RefreshUsage(ctx)
	return ok()
}

// SignIn аутентифицирует пользователя. Причина отказа сервера
// возвращается дословно.
func (s *Store) SignIn(ctx context.Context, username, password string) Result {
	if username == "" || password == "" {
		return fail("username and password are required")
	}

	token, err := s.relay.Login(ctx, username, password)
	if err != nil {
		return fail(relayReason(err, "login failed"))
	}

	s.mu.Lock()
	s.state.Profile = &Profile{Username: username, Password: password}
	s.state.RegisteredUsers[username] = true
	s.state.AuthToken = token.AccessToken
	s.state.Authenticated = true
	s.completeRegistrationLocked("")
	s.mu.Unlock()

	s.relay.SetAuthToken(token.AccessToken)
	s.RefreshUsage(ctx)
	return ok()
}

// relayReason выбирает текст причины из ответа сервера, если он есть.
func relayReason(err error, fallback string) string {
	var apiErr *relay.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
