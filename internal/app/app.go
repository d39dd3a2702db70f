// Package app wires configuration into a ready analyzer, shared by the
// server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/miradorstack/realitycheck/internal/cache"
	"github.com/miradorstack/realitycheck/internal/config"
	"github.com/miradorstack/realitycheck/internal/engine"
	"github.com/miradorstack/realitycheck/internal/extractors"
	"github.com/miradorstack/realitycheck/internal/history"
	"github.com/miradorstack/realitycheck/internal/locks"
	"github.com/miradorstack/realitycheck/internal/repo"
	"github.com/miradorstack/realitycheck/internal/utils"
)

// App holds the long-lived components built from a Config.
type App struct {
	Analyzer *engine.Analyzer
	History  *history.Replayer

	closers []func() error
}

// Build constructs the store, extractor, locks and analyzer described by cfg.
// Without Valkey the latest-snapshot cache and the lock are in-process; a
// configured but unreachable Valkey degrades to that with a warning.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{}

	policy, err := engine.LoadPolicy(cfg.Policy.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, utils.NewAppError("open store", cfg.Storage.Driver, err)
	}
	a.closers = append(a.closers, store.Close)

	extractor, err := newExtractor(ctx, cfg.Extractor)
	if err != nil {
		_ = a.Close()
		return nil, utils.NewAppError("build extractor", cfg.Extractor.Provider, err)
	}

	var locker locks.Locker = locks.NewKeyedMutex()
	cacheProvider := cache.NewMemoryProvider()
	shared := false
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			shared = true
			// The keyed mutex queues local callers before the shared lock
			// rejects callers from other processes.
			locker = locks.Chain{locker, locks.NewCacheLocker(provider, cfg.Cache.LockTTL, logger)}
		}
	}

	a.closers = append(a.closers, cacheProvider.Close)

	cached := repo.NewCachedStore(store, cacheProvider, cfg.Cache.LatestTTL, logger)
	a.Analyzer = engine.NewAnalyzer(logger, extractor, cached, locker, policy, nil)
	a.History = history.NewReplayer(logger, store)

	logger.Info("analyzer ready",
		slog.String("storage", cfg.Storage.Driver),
		slog.String("extractor", cfg.Extractor.Provider),
		slog.Bool("shared_cache", shared),
	)
	return a, nil
}

// Close releases every resource Build opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.StorageConfig) (repo.Store, error) {
	switch cfg.Driver {
	case "memory":
		return repo.NewMemoryStore(), nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		return repo.OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func newExtractor(ctx context.Context, cfg config.ExtractorConfig) (engine.FieldExtractor, error) {
	switch cfg.Provider {
	case "labeled", "":
		return extractors.NewLabeledExtractor(), nil
	case "http":
		return extractors.NewHTTPExtractor(cfg.BaseURL, cfg.Path, cfg.Timeout), nil
	case "gemini":
		extractor, err := extractors.NewGeminiExtractor(ctx, extractors.GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini extractor: %w", err)
		}
		return extractor, nil
	default:
		return nil, fmt.Errorf("unknown extractor provider %q", cfg.Provider)
	}
}
