package main

import (
	"testing"
	"time"

	appconfig "github.com/wolfman30/wayloft-concierge/internal/config"
)

func TestRequestTimeoutCoversFallbackAttempt(t *testing.T) {
	cfg := &appconfig.Config{LLMTimeout: 20 * time.Second}
	if got := requestTimeout(cfg); got != 50*time.Second {
		t.Fatalf("expected 50s, got %v", got)
	}
}

func TestRequestTimeoutDefault(t *testing.T) {
	if got := requestTimeout(&appconfig.Config{}); got != time.Minute {
		t.Fatalf("expected 1m default, got %v", got)
	}
}
