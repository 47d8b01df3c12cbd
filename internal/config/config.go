package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	Port         string
	Environment  string
	LogLevel     slog.Level
	DataDir      string
	DefaultStory string
	SessionStore string
	RedisURL     string
	SessionTTL   time.Duration
	DiceSeed     uint64 // 0 picks a random seed
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DataDir:      getEnv("DATA_DIR", "./data"),
		DefaultStory: getEnv("DEFAULT_STORY", "haragoth"),
		SessionStore: strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
	}

	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL: must be positive, got %s", ttl)
	}
	cfg.SessionTTL = ttl

	seed, err := strconv.ParseUint(getEnv("DICE_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DICE_SEED: %w", err)
	}
	cfg.DiceSeed = seed

	switch cfg.SessionStore {
	case StoreMemory, StoreRedis:
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE %q: expected %q or %q", cfg.SessionStore, StoreMemory, StoreRedis)
	}

	return cfg, nil
}

// IsProduction reports whether logs should be structured JSON.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
