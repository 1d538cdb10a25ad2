// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration for the relay server.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// Database is the SQLite file path for the transfer store. Empty
	// selects the in-memory store.
	Database string `yaml:"database"`

	// ReadTimeout bounds how long a connection may stay silent.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds outbound message delivery.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// HeartbeatInterval is the WebSocket ping period.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// MaxMessageSize caps incoming frames, in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// MaxConnections limits concurrent clients. 0 means unlimited.
	MaxConnections int `yaml:"max_connections"`

	// AllowAnyOrigin disables the same-origin check on upgrade.
	AllowAnyOrigin bool `yaml:"allow_any_origin"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Addr:              ":8080",
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 25 * time.Second,
		MaxMessageSize:    1 << 20,
		LogLevel:          "info",
	}
}

// Load reads configuration from path, then applies environment
// overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields from DUPLEXIO_* variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("DUPLEXIO_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("DUPLEXIO_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("DUPLEXIO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DUPLEXIO_MAX_CONNECTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: DUPLEXIO_MAX_CONNECTIONS: %w", err)
		}
		c.MaxConnections = n
	}
	if v := os.Getenv("DUPLEXIO_ALLOW_ANY_ORIGIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DUPLEXIO_ALLOW_ANY_ORIGIN: %w", err)
		}
		c.AllowAnyOrigin = b
	}
	return nil
}
