// Package config holds the environment-driven configuration for the chat
// server. Values are read from SCS_-prefixed environment variables, typically
// fronted by a .env file loaded in main.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config is the validated runtime configuration.
type Config struct {
	// Port is the TCP port the chat protocol listens on.
	Port uint16 `envconfig:"PORT" default:"7575"`

	// MaxConnections caps the number of simultaneously connected clients.
	// Connections beyond the cap are accepted and immediately closed.
	MaxConnections uint32 `envconfig:"MAX_CONNECTIONS" default:"100"`

	// MaxChatrooms is advisory only: it is logged at startup but not
	// enforced anywhere. Rooms are created on demand without limit.
	MaxChatrooms uint32 `envconfig:"MAX_CHATROOMS" default:"100"`

	// Verbose selects human-readable debug logging.
	Verbose bool `envconfig:"VERBOSE" default:"false"`

	// LoggingEnabled turns the log sink on or off entirely.
	LoggingEnabled bool `envconfig:"LOGGING_ENABLED" default:"true"`

	// MetricsAddr is the listen address of the admin HTTP server serving
	// /metrics and the health endpoints. Empty disables the admin server.
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads and validates configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("scs", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("SCS_PORT must be a valid port number between 1 and 65535")
	}
	if cfg.MaxConnections == 0 {
		return nil, fmt.Errorf("SCS_MAX_CONNECTIONS must be at least 1")
	}
	return &cfg, nil
}

// Addr returns the chat listener address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
