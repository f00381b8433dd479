package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.OfferExpiryWindow != 7*24*time.Hour {
		t.Errorf("expected 7 day expiry window, got %v", cfg.OfferExpiryWindow)
	}
	if len(cfg.EscalationThresholds) != 3 {
		t.Errorf("expected 3 escalation thresholds, got %d", len(cfg.EscalationThresholds))
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hronboard.yaml")
	body := `
offer_expiry_window: 72h
sweep_interval: 1h
escalation_thresholds: ["24h", "48h"]
default_channel: chatbot
channels:
  chatbot: true
  email: false
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OfferExpiryWindow != 72*time.Hour {
		t.Errorf("expected 72h window, got %v", cfg.OfferExpiryWindow)
	}
	if len(cfg.EscalationThresholds) != 2 || cfg.EscalationThresholds[1] != 48*time.Hour {
		t.Errorf("unexpected thresholds: %v", cfg.EscalationThresholds)
	}
	if cfg.DefaultChannel != "chatbot" {
		t.Errorf("expected chatbot default channel, got %q", cfg.DefaultChannel)
	}
}

func TestLoad_RejectsUnorderedThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	body := `escalation_thresholds: ["72h", "48h"]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for descending thresholds")
	}
}

func TestLoad_RejectsDisabledDefaultChannel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	body := `
channels:
  email: false
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when default channel is disabled")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/db")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env-host/db" {
		t.Errorf("expected env override, got %q", cfg.DatabaseURL)
	}
}
