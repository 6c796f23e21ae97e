package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vigil-ai/vigil-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// Config holds application configuration values
type Config struct {
	ServerPort     string
	JWTSecret      string
	JWTExpiration  time.Duration
	MetadataDbDir  string
	MetadataDbFile string
	MediaDir       string

	// External description service
	LLMAPIKey  string
	LLMAPIURL  string
	LLMTimeout time.Duration

	// Empty selects the in-memory broadcast bus
	RedisAddr string

	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	// Attempt to load .env file if in development environment (skip in production)
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "") // No sensible default for secret!
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	dbDir := getEnv("DATABASE_DIRECTORY", "data")
	dbFile := getEnv("DATABASE_DIRECTORY_FILE", "vigil.db")
	mediaDir := getEnv("MEDIA_DIRECTORY", "media")
	llmAPIKey := os.Getenv("LLM_API_KEY")
	llmAPIURL := os.Getenv("LLM_API_URL")
	llmTimeoutStr := getEnv("LLM_TIMEOUT_SECONDS", "180")
	redisAddr := os.Getenv("REDIS_ADDR")
	corsOrigins := getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	// Critical: Ensure JWT Secret is set
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}

	llmTimeoutSecs, err := strconv.Atoi(llmTimeoutStr)
	if err != nil || llmTimeoutSecs <= 0 {
		customLog.Warnf("Invalid LLM_TIMEOUT_SECONDS '%s'. Using default 180s. Error: %v", llmTimeoutStr, err)
		llmTimeoutSecs = 180
	}

	// The description client degrades gracefully when unset, so these only warn.
	if llmAPIKey == "" || llmAPIURL == "" {
		customLog.Warnln("WARNING: LLM_API_KEY or LLM_API_URL is not set; analysis will return a placeholder description.")
	}

	cfg := &Config{
		ServerPort:         port,
		JWTSecret:          jwtSecret,
		JWTExpiration:      time.Hour * time.Duration(jwtExpHours),
		MetadataDbDir:      dbDir,
		MetadataDbFile:     dbFile,
		MediaDir:           mediaDir,
		LLMAPIKey:          llmAPIKey,
		LLMAPIURL:          llmAPIURL,
		LLMTimeout:         time.Second * time.Duration(llmTimeoutSecs),
		RedisAddr:          redisAddr,
		CORSAllowedOrigins: splitAndTrim(corsOrigins),
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v, Bus: %s", cfg.ServerPort, cfg.JWTExpiration, busKind(cfg))
	return cfg, nil
}

func busKind(cfg *Config) string {
	if cfg.RedisAddr != "" {
		return "redis"
	}
	return "memory"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
