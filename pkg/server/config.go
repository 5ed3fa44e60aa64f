package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration.
//
// Precedence order (highest wins): CLI flags (cmd/server), environment
// variables (LoadFromEnv), YAML config file (LoadFile), defaults.
type Config struct {
	Addr         string        // TCP bind address (e.g. ":4000")
	WSAddr       string        // WebSocket gateway bind address (empty = disabled)
	MetricsAddr  string        // HTTP bind address for /metrics (empty = disabled)
	Greeting     string        // INFO line sent immediately on accept
	IdleTimeout  time.Duration // inactivity deadline for authenticated sessions
	ReapInterval time.Duration // period of the idle sweep
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         ":4000",
		Greeting:     "Welcome to linechat. LOGIN <username> to begin.",
		IdleTimeout:  60 * time.Second,
		ReapInterval: 30 * time.Second,
	}
}

// fileConfig is the YAML shape of the config file. Durations are strings
// in time.ParseDuration form ("60s", "2m"). Absent fields keep whatever
// value cfg already holds.
type fileConfig struct {
	Addr         string `yaml:"addr"`
	WSAddr       string `yaml:"ws_addr"`
	MetricsAddr  string `yaml:"metrics_addr"`
	Greeting     string `yaml:"greeting"`
	IdleTimeout  string `yaml:"idle_timeout"`
	ReapInterval string `yaml:"reap_interval"`
}

// LoadFile overlays values from a YAML config file onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.WSAddr != "" {
		cfg.WSAddr = fc.WSAddr
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if fc.Greeting != "" {
		cfg.Greeting = fc.Greeting
	}
	if fc.IdleTimeout != "" {
		d, err := time.ParseDuration(fc.IdleTimeout)
		if err != nil {
			return fmt.Errorf("config: idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if fc.ReapInterval != "" {
		d, err := time.ParseDuration(fc.ReapInterval)
		if err != nil {
			return fmt.Errorf("config: reap_interval: %w", err)
		}
		cfg.ReapInterval = d
	}
	return nil
}

// LoadFromEnv overlays environment variables onto cfg. Every supported
// variable uses the LINECHAT_ prefix; only non-empty values override.
// Call this before CLI flag handling so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("LINECHAT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Addr = fmt.Sprintf(":%d", port)
		}
	}
	if v := os.Getenv("LINECHAT_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LINECHAT_WS_ADDR"); v != "" {
		cfg.WSAddr = v
	}
	if v := os.Getenv("LINECHAT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("LINECHAT_GREETING"); v != "" {
		cfg.Greeting = v
	}
	if v := os.Getenv("LINECHAT_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.IdleTimeout = d
		}
	}
	if v := os.Getenv("LINECHAT_REAP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReapInterval = d
		}
	}
}
