package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "REDIS_URL", "SQLITE_PATH",
		"MAX_MESSAGE_LENGTH", "MESSAGE_GROUP_WINDOW", "RATE_LIMIT_WHITELIST",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
	if cfg.MaxMessageLength != DefaultMaxMessageLength {
		t.Errorf("MaxMessageLength = %d, want %d", cfg.MaxMessageLength, DefaultMaxMessageLength)
	}
	if cfg.GroupWindow != DefaultGroupWindow {
		t.Errorf("GroupWindow = %v, want %v", cfg.GroupWindow, DefaultGroupWindow)
	}
	if len(cfg.RateLimitWhitelist) != 0 {
		t.Errorf("RateLimitWhitelist = %v, want empty", cfg.RateLimitWhitelist)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "staging")
	t.Setenv("MAX_MESSAGE_LENGTH", "500")
	t.Setenv("MESSAGE_GROUP_WINDOW", "2m")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 192.168.0.0/16 ,")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.MaxMessageLength != 500 {
		t.Errorf("MaxMessageLength = %d, want 500", cfg.MaxMessageLength)
	}
	if cfg.GroupWindow != 2*time.Minute {
		t.Errorf("GroupWindow = %v, want 2m", cfg.GroupWindow)
	}
	want := []string{"10.0.0.1", "192.168.0.0/16"}
	if len(cfg.RateLimitWhitelist) != len(want) {
		t.Fatalf("RateLimitWhitelist = %v, want %v", cfg.RateLimitWhitelist, want)
	}
	for i := range want {
		if cfg.RateLimitWhitelist[i] != want[i] {
			t.Errorf("RateLimitWhitelist[%d] = %q, want %q", i, cfg.RateLimitWhitelist[i], want[i])
		}
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_MESSAGE_LENGTH", "not-a-number")
	t.Setenv("MESSAGE_GROUP_WINDOW", "soon")

	cfg := Load()

	if cfg.MaxMessageLength != DefaultMaxMessageLength {
		t.Errorf("MaxMessageLength = %d, want default %d", cfg.MaxMessageLength, DefaultMaxMessageLength)
	}
	if cfg.GroupWindow != DefaultGroupWindow {
		t.Errorf("GroupWindow = %v, want default %v", cfg.GroupWindow, DefaultGroupWindow)
	}
}
