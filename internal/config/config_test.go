package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REALITYCHECK_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Server.Address != ":50051" || cfg.Storage.Driver != "sqlite" || cfg.Extractor.Provider != "labeled" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Cache.Enabled {
		t.Fatalf("cache should be disabled by default")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  address: ":6000"
storage:
  driver: memory
extractor:
  provider: http
  baseURL: http://extractor:8080
cache:
  latestTTL: 30s
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REALITYCHECK_LOG_LEVEL", "debug")
	t.Setenv("REALITYCHECK_CACHE_LOCK_TTL", "45s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":6000" || cfg.Storage.Driver != "memory" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Extractor.BaseURL != "http://extractor:8080" || cfg.Extractor.Path != "/v1/extract" {
		t.Fatalf("extractor config mismatch: %+v", cfg.Extractor)
	}
	if cfg.Cache.LatestTTL != 30*time.Second || cfg.Cache.LockTTL != 45*time.Second {
		t.Fatalf("cache ttl mismatch: %+v", cfg.Cache)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":     {"REALITYCHECK_STORAGE_DRIVER": "postgres"},
		"gemini without key": {"REALITYCHECK_EXTRACTOR_PROVIDER": "gemini"},
		"http without url":   {"REALITYCHECK_EXTRACTOR_PROVIDER": "http"},
		"cache without addr": {"REALITYCHECK_CACHE_ENABLED": "true"},
		"unknown extractor":  {"REALITYCHECK_EXTRACTOR_PROVIDER": "oracle"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("REALITYCHECK_CONFIG", "")
			t.Setenv("GEMINI_API_KEY", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "invalid config") {
				t.Fatalf("expected invalid config error, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestShippedConfigLoads(t *testing.T) {
	t.Setenv("REALITYCHECK_CONFIG", "")
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if cfg.Cache.LockTTL != 2*time.Minute || cfg.Extractor.Provider != "labeled" {
		t.Fatalf("unexpected shipped config: %+v", cfg)
	}
}
