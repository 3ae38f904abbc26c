// Package config provides environment configuration for the bot.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AI providers understood by the llm package.
const (
	ProviderGateway   = "gateway"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the application.
type Config struct {
	// Telegram
	TelegramToken string
	AdminUserID   string

	// Persistence
	DatabaseURL         string
	MemoryFallbackTurns int
	HistoryTurns        int

	// AI settings
	AIProvider   string
	AIEndpoint   string
	AIAPIKey     string
	AIModel      string
	AITimeout    time.Duration
	AIMaxRetries int

	// Workflows
	Concurrency     int
	MaxFileMB       int
	ConvertTimeout  time.Duration
	SofficePath     string
	MergeConfirmTTL time.Duration
	SessionIdleTTL  time.Duration

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Ops HTTP
	HTTPAddr          string
	AdminJWTSecret    string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string
	LogFile  string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Telegram
		TelegramToken: strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", "")),
		AdminUserID:   strings.TrimSpace(getEnv("ADMIN_TELEGRAM_USER_ID", "")),

		// Persistence
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		MemoryFallbackTurns: getIntEnv("MEMORY_FALLBACK_TURNS", 50),
		HistoryTurns:        getIntEnv("HISTORY_TURNS", 16),

		// AI
		AIProvider:   strings.ToLower(getEnv("AI_PROVIDER", ProviderGateway)),
		AIEndpoint:   getEnv("AI_ENDPOINT", ""),
		AIAPIKey:     getEnv("AI_API_KEY", ""),
		AIModel:      getEnv("AI_MODEL", ""),
		AITimeout:    getDurationEnv("AI_TIMEOUT", 600*time.Second),
		AIMaxRetries: getIntEnv("AI_MAX_RETRIES", 2),

		// Workflows
		Concurrency:     getIntEnv("CONCURRENCY", 20),
		MaxFileMB:       getIntEnv("MAX_FILE_MB", 20),
		ConvertTimeout:  getDurationEnv("CONVERT_TIMEOUT", 240*time.Second),
		SofficePath:     getEnv("SOFFICE_PATH", "soffice"),
		MergeConfirmTTL: getDurationEnv("MERGE_CONFIRM_TTL", 0),
		SessionIdleTTL:  getDurationEnv("SESSION_IDLE_TTL", 0),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Ops HTTP
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		AdminJWTSecret:    getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is required"))
	}
	if c.MaxFileMB < 1 {
		errs = append(errs, fmt.Errorf("MAX_FILE_MB must be at least 1, got %d", c.MaxFileMB))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Concurrency))
	}
	if c.AIMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("AI_MAX_RETRIES must not be negative, got %d", c.AIMaxRetries))
	}
	switch c.AIProvider {
	case ProviderGateway, ProviderOpenAI, ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER %q is not one of gateway, openai, anthropic", c.AIProvider))
	}

	return errors.Join(errs...)
}

// MaxFileBytes is the per-file size limit in bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.MaxFileMB) * 1024 * 1024
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
