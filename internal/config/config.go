package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string
	Env  string

	DatabaseURL string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// Round tunables. Timers are in seconds to match the 1 Hz driver.
	EntryFee      int64
	JoinDuration  int
	LockWindow    int
	BreakDuration int

	JoinRateLimit  int
	JoinRateWindow time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:      os.Getenv("PORT"),
		Env:       getEnv("ENV", "development"),
		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		EntryFee:      int64(getEnvInt("ENTRY_FEE", 10)),
		JoinDuration:  getEnvInt("JOIN_DURATION", 300),
		LockWindow:    getEnvInt("LOCK_WINDOW", 10),
		BreakDuration: getEnvInt("BREAK_DURATION", 15),

		JoinRateLimit:  getEnvInt("JOIN_RATE_LIMIT", 5),
		JoinRateWindow: time.Minute,
	}

	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.LockWindow >= cfg.JoinDuration {
		return nil, fmt.Errorf("LOCK_WINDOW must be shorter than JOIN_DURATION")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
