package config

import (
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.RequestTimeout)
	}
	if cfg.AuthScheme != "raw" {
		t.Fatalf("unexpected auth scheme %q", cfg.AuthScheme)
	}
	if cfg.MaxPrice != 1000 {
		t.Fatalf("unexpected max price %v", cfg.MaxPrice)
	}
	if len(cfg.Categories) != 5 || cfg.Categories[3] != "Home & Garden" {
		t.Fatalf("unexpected categories %v", cfg.Categories)
	}
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://shop:8080")
	t.Setenv("REQUEST_TIMEOUT", "250ms")
	t.Setenv("SYNC_CHAT_HISTORY", "false")
	t.Setenv("ADMIN_USER", "42")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.BackendURL != "http://shop:8080" || cfg.RequestTimeout != 250*time.Millisecond {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SyncChatHistory || cfg.AdminUserID != 42 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
