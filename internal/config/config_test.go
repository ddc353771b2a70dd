package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("SUPPORTED_DESTINATIONS", "")
	t.Setenv("NOTIFY_DEDUPE_TTL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("expected default provider anthropic, got %s", cfg.LLMProvider)
	}
	if len(cfg.SupportedDestinations) != 5 || cfg.SupportedDestinations[0] != "Morocco" {
		t.Fatalf("expected default destinations, got %v", cfg.SupportedDestinations)
	}
	if cfg.DefaultCountryCode != "44" {
		t.Fatalf("expected default country code 44, got %s", cfg.DefaultCountryCode)
	}
	if cfg.NotifyDedupeTTL != 30*24*time.Hour {
		t.Fatalf("expected default dedupe ttl, got %s", cfg.NotifyDedupeTTL)
	}
	if cfg.LLMTimeout != 20*time.Second {
		t.Fatalf("expected default llm timeout, got %s", cfg.LLMTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LLM_PROVIDER", " Bedrock ")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("SUPPORTED_DESTINATIONS", "Jordan, , Turkey")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://wayloft.com,https://www.wayloft.com")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTimeout != 5*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.LLMTimeout)
	}
	if len(cfg.SupportedDestinations) != 2 || cfg.SupportedDestinations[1] != "Turkey" {
		t.Fatalf("expected trimmed destination list, got %v", cfg.SupportedDestinations)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rps override, got %v", cfg.RateLimitRPS)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")
	t.Setenv("LLM_TIMEOUT", "soon")
	cfg := Load()
	if cfg.RateLimitBurst != 10 {
		t.Fatalf("expected burst fallback, got %d", cfg.RateLimitBurst)
	}
	if cfg.LLMTimeout != 20*time.Second {
		t.Fatalf("expected timeout fallback, got %s", cfg.LLMTimeout)
	}
}
