package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the relay server configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"debug"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8000"`

	// Database (PostgreSQL)
	DBHost    string `envconfig:"DB_HOST" default:"localhost"`
	DBPort    string `envconfig:"DB_PORT" default:"5432"`
	DBUser    string `envconfig:"DB_USER" default:"postgres"`
	DBName    string `envconfig:"DB_NAME" default:"charchat"`
	DBSSLMode string `envconfig:"DB_SSL_MODE" default:"disable"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Redis (одноразовые рекламные сессии)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Секретное поле БЕЗ envconfig тега
	RedisPassword string

	// JWT - секрет читается отдельно
	JWTSecret      string
	AccessTokenTTL time.Duration `envconfig:"JWT_ACCESS_TOKEN_TTL" default:"20h"`

	// AI completion backend
	AIAPIKey  string
	AIModel   string        `envconfig:"AI_MODEL" default:"grok-3-mini"`
	AIBaseURL string        `envconfig:"AI_BASE_URL" default:"https://api.x.ai/v1"`
	AITimeout time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`

	// Quota/ad economics
	InitialFreeCredits int           `envconfig:"INITIAL_FREE_CREDITS" default:"5"`
	SignupBonusCredits int           `envconfig:"SIGNUP_BONUS_CREDITS" default:"10"`
	AdBonusCredits     int           `envconfig:"AD_BONUS_CREDITS" default:"10"`
	AdMinWatchSeconds  int           `envconfig:"AD_MIN_WATCH_SECONDS" default:"13"`
	AdSessionTTL       time.Duration `envconfig:"AD_SESSION_TTL" default:"30m"`

	// CORS
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// DatabaseDSN собирает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if _, err := os.Stat(envFilePath); err == nil {
			if err := godotenv.Load(envFilePath); err != nil {
				log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	// Секреты читаем явно, без defaults в тегах
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.AIAPIKey = os.Getenv("AI_API_KEY")

	if cfg.DBPassword == "" {
		cfg.DBPassword = "postgres"
	}
	if cfg.JWTSecret == "" {
		if cfg.Env == "production" {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	return &cfg, nil
}
