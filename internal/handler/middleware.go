package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"character-chat-server/internal/models"
)

// Ключи контекста gin.
const (
	ctxKeyUser   = "current_user"
	ctxKeyAnonID = "anon_id"
)

// OptionalAuthMiddleware разбирает bearer-токен, если он есть. Невалидный
// токен не блокирует запрос: вызывающий продолжает работать как гость.
// Анонимный id снимается с заголовка X-Anon-Id.
func (h *Handler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if anonID := c.GetHeader("X-Anon-Id"); anonID != "" {
			c.Set(ctxKeyAnonID, anonID)
		}

		tokenString := bearerToken(c)
		if tokenString != "" {
			user, err := h.verifyUser(c, tokenString)
			if err != nil {
				h.logger.Debug("Optional auth token rejected, continuing as guest", zap.Error(err))
			} else {
				c.Set(ctxKeyUser, user)
			}
		}
		c.Next()
	}
}

// RequireAuthMiddleware требует валидный bearer-токен.
func (h *Handler) RequireAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}
		user, err := h.verifyUser(c, tokenString)
		if err != nil {
			h.logger.Warn("Access token verification failed", zap.Error(err))
			handleServiceError(c, err)
			return
		}
		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

func (h *Handler) verifyUser(c *gin.Context, tokenString string) (*models.User, error) {
	claims, err := h.authService.VerifyToken(c.Request.Context(), tokenString)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: claims.UserID, Username: claims.Username}, nil
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// currentUser возвращает пользователя из контекста или nil для гостя.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// anonID достает анонимный id: заголовок имеет приоритет над телом запроса.
func anonID(c *gin.Context, fromBody string) string {
	if v, ok := c.Get(ctxKeyAnonID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return fromBody
}
