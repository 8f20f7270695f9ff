// Package config loads CLI configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the process-level settings. Provider definitions live in the
// YAML file named by ConfigPath.
type Config struct {
	// Providers
	ConfigPath string
	Provider   string

	// Credentials for providers that require a session
	Username string
	Password string

	// Logging
	LogLevel  string
	LogFormat string

	// Metrics ("" disables the endpoint)
	MetricsAddr string

	// Downloads
	MaxDownloadSize int64

	// Per-command deadline (0 = none)
	Timeout time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ConfigPath:      envOr("OPFS_CONFIG", "opfs.yaml"),
		Provider:        envOr("OPFS_PROVIDER", ""),
		Username:        envOr("OPFS_USERNAME", ""),
		Password:        envOr("OPFS_PASSWORD", ""),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "console"),
		MetricsAddr:     envOr("METRICS_ADDR", ""),
		MaxDownloadSize: envInt64("OPFS_MAX_DOWNLOAD_SIZE", 512*1024*1024), // 512MB default
		Timeout:         envDuration("OPFS_TIMEOUT", 0),
	}

	if cfg.MaxDownloadSize < 0 {
		return nil, fmt.Errorf("OPFS_MAX_DOWNLOAD_SIZE must not be negative")
	}
	if cfg.Password != "" && cfg.Username == "" {
		return nil, fmt.Errorf("OPFS_PASSWORD is set without OPFS_USERNAME")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
