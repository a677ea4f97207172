package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpr131/whiskey-inventory-app-sub000/config"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/infrastructure/cache"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/infrastructure/feed"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/infrastructure/memstore"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/infrastructure/sqlite"
	"github.com/mpr131/whiskey-inventory-app-sub000/internal/usecase"
)

// Store is the persistence the engine needs: the catalog plus job checkpoints
type Store interface {
	domain.CatalogStore
	domain.CheckpointStore
	Count(ctx context.Context) (int, error)
}

// App holds the wired engine components. Build it once at process start with New
// and release it with Close.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Store      Store
	Cache      *cache.MemoryCache
	Resolver   *usecase.Resolver
	Backfiller *usecase.Backfiller
	Feed       domain.FeedSource // nil when no feed base URL is configured

	closers []func() error
}

// New opens the configured store and wires the resolver, backfiller and feed client
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", domain.ErrInvalidRequest)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = store
	if closer, ok := store.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	a.Cache = cache.NewMemoryCache(cfg.Cache.MaxEntries)
	a.closers = append(a.closers, func() error { a.Cache.Close(); return nil })

	resolverConfig := ResolverConfig(cfg)
	a.Resolver = usecase.NewResolver(store, a.Cache, logger.With("component", "resolver"), resolverConfig)
	a.Backfiller = usecase.NewBackfiller(store, store, logger.With("component", "backfill"), resolverConfig, cfg.Backfill.PageSize)

	if cfg.Feed.BaseURL != "" {
		a.Feed = feed.NewClient(feed.Options{
			BaseURL:           cfg.Feed.BaseURL,
			APIKey:            cfg.Feed.APIKey,
			RequestsPerSecond: cfg.Feed.RequestsPerSecond,
			Burst:             cfg.Feed.Burst,
			Timeout:           cfg.Feed.Timeout,
			Logger:            logger,
		})
	}

	entries, err := store.Count(context.Background())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("count catalog entries: %w", err)
	}

	logger.Info("catalog engine ready",
		"store", cfg.Store.Type,
		"entries", entries,
		"merge_threshold", cfg.Matching.MergeThreshold,
		"review_threshold", cfg.Matching.ReviewThreshold,
		"workers", cfg.Matching.Workers,
		"feed", cfg.Feed.BaseURL != "")
	return a, nil
}

// ResolverConfig maps the matching section onto engine settings
func ResolverConfig(cfg *config.Config) usecase.ResolverConfig {
	return usecase.ResolverConfig{
		Policy: usecase.Policy{
			MergeThreshold:     cfg.Matching.MergeThreshold,
			ReviewThreshold:    cfg.Matching.ReviewThreshold,
			PrefilterThreshold: cfg.Matching.PrefilterThreshold,
			MaxCandidates:      cfg.Matching.MaxCandidates,
			ReviewLimit:        cfg.Matching.ReviewLimit,
		},
		Workers:             cfg.Matching.Workers,
		StrategyConcurrency: cfg.Matching.StrategyConcurrency,
		CacheTTL:            cfg.Cache.TTL,
		MaxReportedErrors:   cfg.Matching.MaxReportedErrors,
	}
}

// Ping reports whether the store is reachable
func (a *App) Ping(ctx context.Context) error {
	if p, ok := a.Store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the store and stops background work
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

func openStore(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		busy := cfg.BusyTimeout
		if busy <= 0 {
			busy = 5 * time.Second
		}
		store, err := sqlite.Open(cfg.Path, busy)
		if err != nil {
			return nil, fmt.Errorf("open catalog store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: unknown store type %q", domain.ErrInvalidRequest, cfg.Type)
}
