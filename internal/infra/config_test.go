package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("IMAGE_PROVIDER", "")
	t.Setenv("CACHE_TTL_HOURS", "")
	t.Setenv("MODERATION_ENABLED", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.Provider != "pollinations" {
		t.Fatalf("Provider = %q", cfg.Provider)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Fatalf("CacheTTL = %v", cfg.CacheTTL)
	}
	if !cfg.ModerationEnabled {
		t.Fatal("moderation not enabled by default")
	}
	if cfg.HTTPWriteTimeout != 0 {
		t.Fatalf("HTTPWriteTimeout = %v, want 0 for event streams", cfg.HTTPWriteTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins = %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("IMAGE_PROVIDER", "Replicate")
	t.Setenv("REPLICATE_API_TOKEN", "r8-token")
	t.Setenv("CACHE_TTL_HOURS", "6")
	t.Setenv("MODERATION_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Provider != "replicate" {
		t.Fatalf("Provider = %q, want lowercased", cfg.Provider)
	}
	if cfg.ReplicateAPIToken != "r8-token" {
		t.Fatalf("ReplicateAPIToken = %q", cfg.ReplicateAPIToken)
	}
	if cfg.CacheTTL != 6*time.Hour {
		t.Fatalf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.ModerationEnabled {
		t.Fatal("moderation override ignored")
	}
	want := []string{"https://app.example.com", "https://staging.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %#v want %#v", cfg.AllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.AllowedOrigins[i] != origin {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], origin)
		}
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("RateLimitPerMin = %d, want default 30", cfg.RateLimitPerMin)
	}
}
