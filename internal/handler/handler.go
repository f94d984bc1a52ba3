package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"character-chat-server/internal/auth"
	"character-chat-server/internal/config"
	"character-chat-server/internal/service"
)

// Handler обслуживает HTTP контракт /api/interface/* и /api/auth/*.
type Handler struct {
	authService  *auth.Service
	chatService  service.ChatService
	usageService service.UsageService
	likeService  service.LikeService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewHandler creates the top-level HTTP handler.
func NewHandler(
	authService *auth.Service,
	chatService service.ChatService,
	usageService service.UsageService,
	likeService service.LikeService,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authService:  authService,
		chatService:  chatService,
		usageService: usageService,
		likeService:  likeService,
		cfg:          cfg,
		logger:       logger.Named("Handler"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
	}

	api := router.Group("/api/interface")
	api.Use(h.OptionalAuthMiddleware())
	{
		api.POST("/guest/init", h.guestInit)
		api.GET("/usage/status", h.usageStatus)
		api.POST("/ad/start", h.adStart)
		api.POST("/ad/complete", h.adComplete)

		api.GET("/characters", h.listCharacters)
		api.GET("/likes/status", h.likesStatus)
		api.POST("/likes/toggle", h.likesToggle)

		api.POST("/chat/create_by_id", h.createChatByID)
		api.POST("/chat/send", h.sendMessage)
	}

	protected := router.Group("/api/interface")
	protected.Use(h.RequireAuthMiddleware())
	{
		protected.GET("/me", h.getMe)
		protected.GET("/chats", h.listChats)
		protected.DELETE("/chats/:chat_id", h.archiveChat)
	}
}
