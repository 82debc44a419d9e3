package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                string
	StateFile           string
	DatabaseURL         string
	ManagerPasswordHash string
	CallTimeout         time.Duration
	OverdueScanInterval time.Duration
	RateLimitPerMinute  int
	RateLimitBurst      int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	stateFile := os.Getenv("STATE_FILE")
	if stateFile == "" {
		stateFile = "data/ticket-system-state.json"
	}

	return Config{
		Port:                port,
		StateFile:           stateFile,
		DatabaseURL:         os.Getenv("DB_DSN"),
		ManagerPasswordHash: os.Getenv("MANAGER_PASSWORD_HASH"),
		CallTimeout:         readDurationSeconds("CALL_TIMEOUT_SECONDS", 10),
		OverdueScanInterval: readDurationSeconds("OVERDUE_SCAN_INTERVAL_SECONDS", 60),
		RateLimitPerMinute:  readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:      readInt("RATE_LIMIT_BURST", 30),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
