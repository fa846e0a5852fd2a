package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the messaging tunables. MaxMessageLength matches the
// historical limit callers already rely on.
const (
	DefaultMaxMessageLength = 1000
	DefaultGroupWindow      = 5 * time.Minute
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	RedisURL    string
	SQLitePath  string

	// Messaging tunables
	MaxMessageLength int           // longest accepted message content
	GroupWindow      time.Duration // recency window for message grouping

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
}

// Load reads configuration from environment variables.
// In development, it loads from a .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", DefaultMaxMessageLength),
		GroupWindow:      getEnvDuration("MESSAGE_GROUP_WINDOW", DefaultGroupWindow),
	}

	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}
	if cfg.GroupWindow <= 0 {
		cfg.GroupWindow = DefaultGroupWindow
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	// In production, require database and redis URLs
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
