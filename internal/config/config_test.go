package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"OPFS_CONFIG", "OPFS_PROVIDER", "OPFS_USERNAME", "OPFS_PASSWORD",
		"LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR", "OPFS_MAX_DOWNLOAD_SIZE", "OPFS_TIMEOUT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConfigPath != "opfs.yaml" {
		t.Errorf("expected opfs.yaml, got %s", cfg.ConfigPath)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("unexpected logging defaults %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.MetricsAddr != "" {
		t.Errorf("expected metrics disabled by default, got %s", cfg.MetricsAddr)
	}
	if cfg.MaxDownloadSize != 512*1024*1024 {
		t.Errorf("unexpected max download size %d", cfg.MaxDownloadSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPFS_CONFIG", "/etc/opfs/providers.yaml")
	t.Setenv("OPFS_PROVIDER", "fairos")
	t.Setenv("OPFS_USERNAME", "alice")
	t.Setenv("OPFS_PASSWORD", "secret")
	t.Setenv("OPFS_MAX_DOWNLOAD_SIZE", "1024")
	t.Setenv("OPFS_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConfigPath != "/etc/opfs/providers.yaml" || cfg.Provider != "fairos" {
		t.Errorf("unexpected provider settings %+v", cfg)
	}
	if cfg.MaxDownloadSize != 1024 {
		t.Errorf("expected 1024, got %d", cfg.MaxDownloadSize)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.Timeout)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("OPFS_MAX_DOWNLOAD_SIZE", "lots")
	t.Setenv("OPFS_TIMEOUT", "soon")
	t.Setenv("OPFS_PASSWORD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxDownloadSize != 512*1024*1024 || cfg.Timeout != 0 {
		t.Errorf("expected fallbacks, got %d and %s", cfg.MaxDownloadSize, cfg.Timeout)
	}
}

func TestLoadRejectsPasswordWithoutUser(t *testing.T) {
	t.Setenv("OPFS_USERNAME", "")
	t.Setenv("OPFS_PASSWORD", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadRejectsNegativeDownloadSize(t *testing.T) {
	t.Setenv("OPFS_PASSWORD", "")
	t.Setenv("OPFS_MAX_DOWNLOAD_SIZE", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected error")
	}
}
