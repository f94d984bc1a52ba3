package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"character-chat-server/internal/catalog"
	"character-chat-server/internal/models"
)

// guestInit выдает (или подтверждает) анонимный id и заводит кредитный счет
// со стартовым балансом.
func (h *Handler) guestInit(c *gin.Context) {
	var req models.GuestInitRequest
	// Тело опционально: пустой POST означает выпуск нового id
	_ = c.ShouldBindJSON(&req)

	acc, created, err := h.usageService.GetOrCreateAccount(c.Request.Context(), nil, anonID(c, req.AnonID))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resp := models.GuestInitResponse{
		CreditsRemaining: acc.CreditsRemaining,
		IsNew:            created,
	}
	if acc.AnonID != nil {
		resp.AnonID = *acc.AnonID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) usageStatus(c *gin.Context) {
	user := currentUser(c)
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	status, err := h.usageService.Status(c.Request.Context(), userID, anonID(c, ""))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) adStart(c *gin.Context) {
	var req models.AdStartRequest
	_ = c.ShouldBindJSON(&req)

	user := currentUser(c)
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	resp, err := h.usageService.StartAd(c.Request.Context(), userID, anonID(c, req.AnonID))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) adComplete(c *gin.Context) {
	var req models.AdCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AdSessionID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "ad_session_id is required"})
		return
	}

	resp, err := h.usageService.CompleteAd(c.Request.Context(), req.AdSessionID, req.WatchedSeconds)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if resp.Awarded {
		adsCompletedTotal.WithLabelValues("awarded").Inc()
	} else {
		adsCompletedTotal.WithLabelValues("rejected").Inc()
	}
	c.JSON(http.StatusOK, resp)
}

// listCharacters отдает каталог с актуальными счетчиками лайков.
func (h *Handler) listCharacters(c *gin.Context) {
	user := currentUser(c)
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	status, err := h.likeService.Status(c.Request.Context(), userID, anonID(c, ""))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	chars := catalog.All()
	for i := range chars {
		chars[i].Likes = status.Likes[chars[i].ID]
		chars[i].LikedByMe = status.LikedByMe[chars[i].ID]
	}
	c.JSON(http.StatusOK, gin.H{"characters": chars})
}

func (h *Handler) likesStatus(c *gin.Context) {
	user := currentUser(c)
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	resp, err := h.likeService.Status(c.Request.Context(), userID, anonID(c, ""))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) likesToggle(c *gin.Context) {
	var req models.LikeToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CharacterID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "character_id is required"})
		return
	}

	user := currentUser(c)
	var userID *uuid.UUID
	if user != nil {
		userID = &user.ID
	}

	resp, err := h.likeService.Toggle(c.Request.Context(), userID, anonID(c, req.AnonID), req.CharacterID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	likesToggledTotal.Inc()
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createChatByID(c *gin.Context) {
	var req models.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CharacterID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "character_id is required"})
		return
	}

	resp, err := h.chatService.CreateChatByID(c.Request.Context(), req.CharacterID, req.UserName, currentUser(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	chatsCreatedTotal.Inc()
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.Content == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "chat_id and content are required"})
		return
	}
	req.AnonID = anonID(c, req.AnonID)

	resp, err := h.chatService.SendMessage(c.Request.Context(), req, currentUser(c))
	if err != nil {
		if errors.Is(err, models.ErrInsufficientCredits) {
			// Квотная ошибка несет подсказку следующего шага для клиента
			zero := 0
			c.AbortWithStatusJSON(http.StatusPaymentRequired, models.ErrorResponse{
				Code:             models.ErrCodeInsufficientCredits,
				Message:          "Not enough credits",
				CreditsRemaining: &zero,
				NextAction:       "watch_ad_or_register",
				AdMinSeconds:     h.cfg.AdMinWatchSeconds,
			})
			return
		}
		handleServiceError(c, err)
		return
	}
	messagesSentTotal.Inc()
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listChats(c *gin.Context) {
	user := currentUser(c)
	chats, err := h.chatService.ListChats(c.Request.Context(), user.ID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *Handler) archiveChat(c *gin.Context) {
	user := currentUser(c)
	if err := h.chatService.ArchiveChat(c.Request.Context(), c.Param("chat_id"), user.ID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getMe(c *gin.Context) {
	user := currentUser(c)

	status, err := h.usageService.Status(c.Request.Context(), &user.ID, "")
	if err != nil {
		h.logger.Warn("Failed to load usage for /me", zap.Error(err))
	}

	resp := gin.H{"id": user.ID.String(), "username": user.Username}
	if status != nil {
		resp["credits_remaining"] = status.CreditsRemaining
	}
	c.JSON(http.StatusOK, resp)
}
