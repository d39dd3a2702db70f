package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/miradorstack/realitycheck/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage:   config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "nested", "rc.db")},
		Extractor: config.ExtractorConfig{Provider: "labeled"},
		Cache:     config.CacheConfig{LatestTTL: time.Minute, LockTTL: time.Minute},
	}
}

func TestBuildRunsAnalysisEndToEnd(t *testing.T) {
	ctx := context.Background()
	a, err := Build(ctx, testConfig(t), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer a.Close()

	resp, err := a.Analyzer.Analyze(ctx, "acme", "problem: agencies lose candidates to slow interview scheduling")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if resp.Snapshot.Version != 1 {
		t.Fatalf("expected version 1, got %d", resp.Snapshot.Version)
	}
	h, err := a.History.Load(ctx, "acme")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if h.LatestVersion != 1 {
		t.Fatalf("expected history at version 1, got %d", h.LatestVersion)
	}
}

func TestBuildUnknownProviders(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extractor.Provider = "oracle"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown extractor")
	}

	cfg = testConfig(t)
	cfg.Storage.Driver = "postgres"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown storage driver")
	}
}

func TestBuildDegradesWithoutValkey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = "memory"
	cfg.Cache.Enabled = true
	cfg.Cache.Addr = "127.0.0.1:1"
	cfg.Cache.DialTimeout = 100 * time.Millisecond
	cfg.Cache.MaxRetries = 0

	a, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("build should degrade, got %v", err)
	}
	defer a.Close()
	if _, err := a.Analyzer.Analyze(context.Background(), "acme", "problem: x y z"); err != nil {
		t.Fatalf("analyze without valkey: %v", err)
	}
}

func TestBuildGeminiNeedsKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extractor.Provider = "gemini"
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error without api key")
	}
}
