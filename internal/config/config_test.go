package config

import (
	"os"
	"testing"
	"time"
)

var loadKeys = []string{
	"PORT", "LOG_LEVEL", "STORE_BACKEND", "DATABASE_URL", "SQLITE_PATH", "QUERY_TIMEOUT",
	"GITHUB_BASE_URL", "GITHUB_TOKEN", "GITHUB_TIMEOUT", "PAGE_SIZE",
	"BREAKER_MAX_FAILURES", "BREAKER_RESET_TIMEOUT", "REDIS_URL", "SEARCH_CACHE_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range loadKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port: got %q, want %q", cfg.Port, "8080")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.StoreBackend != BackendSQLite {
		t.Errorf("StoreBackend: got %q, want %q", cfg.StoreBackend, BackendSQLite)
	}
	if cfg.SQLitePath != "repopager.db" {
		t.Errorf("SQLitePath: got %q", cfg.SQLitePath)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout: got %v", cfg.QueryTimeout)
	}
	if cfg.GitHubTimeout != 10*time.Second {
		t.Errorf("GitHubTimeout: got %v", cfg.GitHubTimeout)
	}
	if cfg.PageSize != 50 {
		t.Errorf("PageSize: got %d, want 50", cfg.PageSize)
	}
	if cfg.BreakerMaxFailures != 5 || cfg.BreakerResetTimeout != 30*time.Second {
		t.Errorf("breaker: got %d / %v", cfg.BreakerMaxFailures, cfg.BreakerResetTimeout)
	}
	if cfg.RedisURL != "" || cfg.SearchCacheTTL != 5*time.Minute {
		t.Errorf("cache: got %q / %v", cfg.RedisURL, cfg.SearchCacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/repopager")
	t.Setenv("GITHUB_BASE_URL", "https://ghe.example.com/api/v3/")
	t.Setenv("GITHUB_TOKEN", "tok")
	t.Setenv("PAGE_SIZE", "30")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SEARCH_CACHE_TTL", "1m")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port: got %q", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel: got %q", cfg.LogLevel)
	}
	if cfg.StoreBackend != BackendPostgres || cfg.DatabaseURL != "postgres://localhost/repopager" {
		t.Errorf("store: got %q / %q", cfg.StoreBackend, cfg.DatabaseURL)
	}
	if cfg.GitHubBaseURL != "https://ghe.example.com/api/v3/" || cfg.GitHubToken != "tok" {
		t.Errorf("github: got %q / %q", cfg.GitHubBaseURL, cfg.GitHubToken)
	}
	if cfg.PageSize != 30 {
		t.Errorf("PageSize: got %d", cfg.PageSize)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" || cfg.SearchCacheTTL != time.Minute {
		t.Errorf("cache: got %q / %v", cfg.RedisURL, cfg.SearchCacheTTL)
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_BACKEND", "postgres")

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for missing DATABASE_URL")
		}
	}()

	Load()
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"sqlite", Config{StoreBackend: BackendSQLite, PageSize: 50}, false},
		{"memory", Config{StoreBackend: BackendMemory, PageSize: 1}, false},
		{"unknown backend", Config{StoreBackend: "mongo", PageSize: 50}, true},
		{"zero page size", Config{StoreBackend: BackendSQLite}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnv_Fallback(t *testing.T) {
	os.Unsetenv("TEST_NONEXISTENT_KEY")
	got := getEnv("TEST_NONEXISTENT_KEY", "default_value")
	if got != "default_value" {
		t.Errorf("got %q, want %q", got, "default_value")
	}
}

func TestGetEnv_Override(t *testing.T) {
	os.Setenv("TEST_GET_ENV_KEY", "override")
	defer os.Unsetenv("TEST_GET_ENV_KEY")

	got := getEnv("TEST_GET_ENV_KEY", "default")
	if got != "override" {
		t.Errorf("got %q, want %q", got, "override")
	}
}

func TestGetEnvInt_Fallback(t *testing.T) {
	os.Unsetenv("TEST_INT_NONEXISTENT")
	got := getEnvInt("TEST_INT_NONEXISTENT", 42)
	if got != 42 {
		t.Errorf("got %d, want %d", got, 42)
	}
}

func TestGetEnvInt_Valid(t *testing.T) {
	os.Setenv("TEST_INT_KEY", "99")
	defer os.Unsetenv("TEST_INT_KEY")

	got := getEnvInt("TEST_INT_KEY", 0)
	if got != 99 {
		t.Errorf("got %d, want %d", got, 99)
	}
}

func TestGetEnvInt_Invalid_ReturnsFallback(t *testing.T) {
	os.Setenv("TEST_INT_INVALID", "not_a_number")
	defer os.Unsetenv("TEST_INT_INVALID")

	got := getEnvInt("TEST_INT_INVALID", 7)
	if got != 7 {
		t.Errorf("got %d, want fallback %d", got, 7)
	}
}

func TestGetEnvDuration_Fallback(t *testing.T) {
	os.Unsetenv("TEST_DUR_NONEXISTENT")
	got := getEnvDuration("TEST_DUR_NONEXISTENT", 5*time.Second)
	if got != 5*time.Second {
		t.Errorf("got %v, want %v", got, 5*time.Second)
	}
}

func TestGetEnvDuration_Valid(t *testing.T) {
	os.Setenv("TEST_DUR_KEY", "2s")
	defer os.Unsetenv("TEST_DUR_KEY")

	got := getEnvDuration("TEST_DUR_KEY", 0)
	if got != 2*time.Second {
		t.Errorf("got %v, want %v", got, 2*time.Second)
	}
}

func TestGetEnvDuration_Invalid_ReturnsFallback(t *testing.T) {
	os.Setenv("TEST_DUR_INVALID", "not_a_duration")
	defer os.Unsetenv("TEST_DUR_INVALID")

	got := getEnvDuration("TEST_DUR_INVALID", 10*time.Millisecond)
	if got != 10*time.Millisecond {
		t.Errorf("got %v, want fallback %v", got, 10*time.Millisecond)
	}
}

func TestGetEnvRequired_Set(t *testing.T) {
	os.Setenv("TEST_REQUIRED_KEY", "hello")
	defer os.Unsetenv("TEST_REQUIRED_KEY")

	got := getEnvRequired("TEST_REQUIRED_KEY")
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestGetEnvRequired_Empty_Panics(t *testing.T) {
	os.Unsetenv("TEST_REQUIRED_MISSING")

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for missing required env var")
		}
	}()

	getEnvRequired("TEST_REQUIRED_MISSING")
}
