// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime configuration loaded from the environment.
type Config struct {
	// ServerURL is the base URL of the radio site's API server (e.g. https://radio.example.net). Required.
	ServerURL string `mapstructure:"SERVER_URL"`
	// StreamURL overrides the live stream URL; empty means resolve from the cached
	// public_stream_url or fall back to SERVER_URL + /stream.
	StreamURL string `mapstructure:"STREAM_URL"`
	// StateDir is the directory for origin-scoped state (sqlite file). Defaults under the user config dir.
	StateDir string `mapstructure:"STATE_DIR"`
	// RuntimeDir is the directory for session-scoped state; cleared by the OS at session end.
	// Defaults to XDG_RUNTIME_DIR, else the system temp dir.
	RuntimeDir string `mapstructure:"RUNTIME_DIR"`
	// SessionID identifies the browsing session the playback record is scoped to.
	// Defaults to XDG_SESSION_ID, else "default".
	SessionID string `mapstructure:"SESSION_ID"`
	// Page is the hash route this page context opened on (e.g. "#library"). Empty means the default route.
	Page string `mapstructure:"PAGE"`
	// StatusPollInterval is the now-playing refresh interval for the mini player (e.g. "15s").
	StatusPollInterval string `mapstructure:"STATUS_POLL_INTERVAL"`
	// PushListenAddr is the address the worker's push endpoint listens on (e.g. 127.0.0.1:8099).
	PushListenAddr string `mapstructure:"PUSH_LISTEN_ADDR"`
	// PublicPushURL is the externally reachable base URL of the push endpoint; subscription
	// endpoints are formed under it. Defaults to http://<PUSH_LISTEN_ADDR>.
	PublicPushURL string `mapstructure:"PUBLIC_PUSH_URL"`
	// OpenCommand is the program used to open a new page in the browser (e.g. xdg-open).
	OpenCommand string `mapstructure:"OPEN_COMMAND"`
	// OTLPEndpoint enables telemetry export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("SERVER_URL", "")
	v.SetDefault("STREAM_URL", "")
	v.SetDefault("STATE_DIR", "")
	v.SetDefault("RUNTIME_DIR", "")
	v.SetDefault("SESSION_ID", "")
	v.SetDefault("PAGE", "")
	v.SetDefault("STATUS_POLL_INTERVAL", "15s")
	v.SetDefault("PUSH_LISTEN_ADDR", "127.0.0.1:8099")
	v.SetDefault("PUBLIC_PUSH_URL", "")
	v.SetDefault("OPEN_COMMAND", "xdg-open")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.ServerURL == "" {
		return nil, errors.New("config: SERVER_URL must be set")
	}
	if u, err := url.Parse(cfg.ServerURL); err != nil || u.Host == "" || u.Scheme == "" {
		return nil, errors.New("config: SERVER_URL must be an absolute URL")
	}
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")

	if cfg.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		cfg.StateDir = filepath.Join(base, "family-radio")
	}
	if cfg.RuntimeDir == "" {
		if rd := os.Getenv("XDG_RUNTIME_DIR"); rd != "" {
			cfg.RuntimeDir = filepath.Join(rd, "family-radio")
		} else {
			cfg.RuntimeDir = filepath.Join(os.TempDir(), "family-radio")
		}
	}
	if cfg.SessionID == "" {
		if sid := os.Getenv("XDG_SESSION_ID"); sid != "" {
			cfg.SessionID = sid
		} else {
			cfg.SessionID = "default"
		}
	}
	if cfg.PublicPushURL == "" {
		cfg.PublicPushURL = "http://" + cfg.PushListenAddr
	}
	cfg.PublicPushURL = strings.TrimRight(cfg.PublicPushURL, "/")

	return &cfg, nil
}

// PollInterval parses StatusPollInterval as a time.Duration. Returns 15s if unset or invalid.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.StatusPollInterval)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// DatabasePath is the sqlite file holding origin-scoped state.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.StateDir, "origin.db")
}

// ResolveStreamURL picks the live stream URL: explicit override, then the origin-cached
// public_stream_url, then SERVER_URL + /stream.
func (c *Config) ResolveStreamURL(cached string) string {
	if c.StreamURL != "" {
		return c.StreamURL
	}
	if cached != "" {
		return cached
	}
	return c.ServerURL + "/stream"
}
