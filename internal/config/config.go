package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Port     string
	LogLevel string

	StoreBackend string
	DatabaseURL  string
	SQLitePath   string
	QueryTimeout time.Duration

	GitHubBaseURL       string
	GitHubToken         string
	GitHubTimeout       time.Duration
	PageSize            int
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration

	// Search cache, disabled when RedisURL is empty.
	RedisURL       string
	SearchCacheTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		StoreBackend:        getEnv("STORE_BACKEND", BackendSQLite),
		SQLitePath:          getEnv("SQLITE_PATH", "repopager.db"),
		QueryTimeout:        getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		GitHubBaseURL:       getEnv("GITHUB_BASE_URL", ""),
		GitHubToken:         getEnv("GITHUB_TOKEN", ""),
		GitHubTimeout:       getEnvDuration("GITHUB_TIMEOUT", 10*time.Second),
		PageSize:            getEnvInt("PAGE_SIZE", 50),
		BreakerMaxFailures:  getEnvInt("BREAKER_MAX_FAILURES", 5),
		BreakerResetTimeout: getEnvDuration("BREAKER_RESET_TIMEOUT", 30*time.Second),
		RedisURL:            getEnv("REDIS_URL", ""),
		SearchCacheTTL:      getEnvDuration("SEARCH_CACHE_TTL", 5*time.Minute),
	}
	if cfg.StoreBackend == BackendPostgres {
		cfg.DatabaseURL = getEnvRequired("DATABASE_URL")
	}
	return cfg
}

// Validate reports settings that Load accepted but the server cannot use.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	return nil
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
