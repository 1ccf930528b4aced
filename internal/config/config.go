package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for the TalkX client.
type Config struct {
	// WebSocket endpoint of the chat server, e.g. wss://chat.talkx.app/ws.
	ServerURL string `env:"TALKX_SERVER_URL"`

	// Base URL for the REST API (auth, push token registration).
	APIBaseURL string `env:"TALKX_API_URL"`

	// Account credentials. When both are empty the client connects
	// anonymously with only its device id.
	Username string `env:"TALKX_USERNAME"`
	Password string `env:"TALKX_PASSWORD"`

	// Device name this client identifies as. Defaults to system hostname.
	DeviceName string `env:"DEVICE_NAME"`

	// Push-delivery platform identifier sent with token registration
	// (e.g. "fcm", "apns"). Empty disables push registration.
	PushPlatform string `env:"TALKX_PUSH_PLATFORM" envDefault:""`

	// Push-delivery token handed over by the platform. Empty disables
	// push registration.
	PushToken string `env:"TALKX_PUSH_TOKEN" envDefault:""`

	// Path of the local state database. Empty resolves to
	// ~/.talkx/state.db.
	StatePath string `env:"TALKX_STATE_PATH" envDefault:""`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DeviceName == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "talkx-client"
		}

		cfg.DeviceName = hostname
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("TALKX_SERVER_URL is required")
	}

	if !strings.HasPrefix(c.ServerURL, "ws://") && !strings.HasPrefix(c.ServerURL, "wss://") {
		return fmt.Errorf("TALKX_SERVER_URL must be a ws:// or wss:// URL")
	}

	if c.APIBaseURL == "" {
		return fmt.Errorf("TALKX_API_URL is required")
	}

	// Credentials are either both set or both empty. A username without
	// a password (or vice versa) is always a misconfiguration.
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("TALKX_USERNAME and TALKX_PASSWORD must be set together")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
