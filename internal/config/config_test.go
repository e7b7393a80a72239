package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WEBHOOK_BASE_URL", "https://bot.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DBPath != "./data/survey.db" {
		t.Errorf("Expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Agent.Voice != "en-US-Standard-A" {
		t.Errorf("Expected default voice, got %q", cfg.Agent.Voice)
	}
	if cfg.Agent.Temperature != 1.0 {
		t.Errorf("Expected default temperature 1.0, got %v", cfg.Agent.Temperature)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WEBHOOK_BASE_URL", "https://bot.example.com")
	t.Setenv("PORT", "9090")
	t.Setenv("AGENT_TEMPERATURE", "0.5")
	t.Setenv("AGENT_TOP_P", "not-a-float")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Port)
	}
	if cfg.Agent.Temperature != 0.5 {
		t.Errorf("Expected temperature 0.5, got %v", cfg.Agent.Temperature)
	}
	// Unparseable floats fall back to the default.
	if cfg.Agent.TopP != 0.3 {
		t.Errorf("Expected top_p fallback 0.3, got %v", cfg.Agent.TopP)
	}
}

func TestLoadRequiresWebhookBaseURL(t *testing.T) {
	t.Setenv("WEBHOOK_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Expected error for missing WEBHOOK_BASE_URL")
	}
}
