package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	ginprometheus "github.com/zsais/go-gin-prometheus"

	"character-chat-server/internal/ai"
	"character-chat-server/internal/auth"
	"character-chat-server/internal/config"
	"character-chat-server/internal/database"
	"character-chat-server/internal/handler"
	"character-chat-server/internal/logger"
	"character-chat-server/internal/repository"
	"character-chat-server/internal/service"
	"character-chat-server/internal/ws"
)

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logEncoding := "json"
	if cfg.Env == "development" {
		logEncoding = "console"
	}
	appLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: logEncoding,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	zap.ReplaceGlobals(appLogger)

	appLogger.Info("Starting character chat server...",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.ServerPort),
	)

	// PostgreSQL с ретраями, база может стартовать дольше сервиса
	dsn := cfg.DatabaseDSN()
	var dbPool *pgxpool.Pool
	maxRetries := 5
	for i := 1; i <= maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		dbPool, err = database.NewPool(ctx, dsn)
		cancel()
		if err == nil {
			break
		}
		appLogger.Warn("Failed to connect to database, retrying...",
			zap.Int("attempt", i),
			zap.Int("max_attempts", maxRetries),
			zap.Error(err),
		)
		if i == maxRetries {
			appLogger.Fatal("Could not connect to database after retries", zap.Error(err))
		}
		time.Sleep(time.Duration(i) * 2 * time.Second)
	}
	defer dbPool.Close()
	appLogger.Info("Database connection established")

	if err := database.ApplyMigrations(dsn); err != nil {
		appLogger.Fatal("Failed to apply database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}
	defer redisClient.Close()
	appLogger.Info("Redis connection established")

	// Репозитории
	userRepo := repository.NewPgUserRepository(dbPool, appLogger.Named("PgUserRepo"))
	chatRepo := repository.NewPgChatRepository(dbPool, appLogger.Named("PgChatRepo"))
	msgRepo := repository.NewPgMessageRepository(dbPool, appLogger.Named("PgMessageRepo"))
	usageRepo := repository.NewPgUsageRepository(dbPool, appLogger.Named("PgUsageRepo"))
	likeRepo := repository.NewPgLikeRepository(dbPool, appLogger.Named("PgLikeRepo"))
	adRepo := repository.NewRedisAdSessionRepository(redisClient, cfg.AdSessionTTL, appLogger.Named("RedisAdRepo"))

	// Сервисы
	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.AccessTokenTTL, appLogger.Named("AuthService"))
	usageService := service.NewUsageService(usageRepo, adRepo, service.UsageConfig{
		InitialFreeCredits: cfg.InitialFreeCredits,
		SignupBonusCredits: cfg.SignupBonusCredits,
		AdBonusCredits:     cfg.AdBonusCredits,
		AdMinWatchSeconds:  cfg.AdMinWatchSeconds,
	}, appLogger.Named("UsageService"))

	responder := ai.NewClient(ai.Config{
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		BaseURL: cfg.AIBaseURL,
		Timeout: cfg.AITimeout,
	})

	wsManager := ws.NewManager(appLogger)
	wsManager.Start()

	chatService := service.NewChatService(chatRepo, msgRepo, usageService, usageRepo, responder, wsManager, appLogger)
	likeService := service.NewLikeService(likeRepo, usageService, appLogger)

	apiHandler := handler.NewHandler(authService, chatService, usageService, likeService, cfg, appLogger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(handler.ZapRequestLogger(appLogger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.GetAllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Anon-Id", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	apiHandler.RegisterRoutes(router)
	router.GET("/ws", gin.WrapH(wsManager.Handler()))

	// Prometheus подключается после регистрации роутов
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited")
}
