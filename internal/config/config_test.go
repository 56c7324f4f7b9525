package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresServerURL(t *testing.T) {
	t.Setenv("SERVER_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when SERVER_URL is unset")
	}
}

func TestLoadRejectsRelativeServerURL(t *testing.T) {
	t.Setenv("SERVER_URL", "radio.example.net/api")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-absolute SERVER_URL")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVER_URL", "https://radio.example.net/")
	t.Setenv("STATE_DIR", t.TempDir())
	t.Setenv("SESSION_ID", "s1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "https://radio.example.net" {
		t.Errorf("ServerURL = %q, want trailing slash trimmed", cfg.ServerURL)
	}
	if got := cfg.PollInterval(); got != 15*time.Second {
		t.Errorf("PollInterval = %v, want 15s", got)
	}
	if cfg.PushListenAddr != "127.0.0.1:8099" {
		t.Errorf("PushListenAddr = %q", cfg.PushListenAddr)
	}
	if cfg.PublicPushURL != "http://127.0.0.1:8099" {
		t.Errorf("PublicPushURL = %q", cfg.PublicPushURL)
	}
	if filepath.Base(cfg.DatabasePath()) != "origin.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath())
	}
}

func TestPollIntervalFallsBackOnGarbage(t *testing.T) {
	c := &Config{StatusPollInterval: "soon"}
	if got := c.PollInterval(); got != 15*time.Second {
		t.Errorf("PollInterval = %v, want 15s fallback", got)
	}
}

func TestResolveStreamURL(t *testing.T) {
	c := &Config{ServerURL: "https://radio.example.net"}
	if got := c.ResolveStreamURL(""); got != "https://radio.example.net/stream" {
		t.Errorf("fallback = %q", got)
	}
	if got := c.ResolveStreamURL("https://cdn.example.net/live"); got != "https://cdn.example.net/live" {
		t.Errorf("cached = %q", got)
	}
	c.StreamURL = "http://localhost:9000/s"
	if got := c.ResolveStreamURL("https://cdn.example.net/live"); got != "http://localhost:9000/s" {
		t.Errorf("override = %q", got)
	}
}
