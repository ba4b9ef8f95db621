package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/heliomap/solar-cli/internal/cache"
	"github.com/heliomap/solar-cli/internal/db"
	"github.com/heliomap/solar-cli/internal/sampler"
	"github.com/heliomap/solar-cli/pkg/identify"
	"github.com/heliomap/solar-cli/pkg/reframe"
)

func newProjector() reframe.Client {
	return reframe.NewClient(
		reframe.WithEndpoints(cfg.Reframe.PrimaryURL, cfg.Reframe.FallbackURL),
		reframe.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Reframe.TimeoutSecs) * time.Second,
		}),
	)
}

func newLookup() identify.Client {
	return identify.NewClient(
		identify.WithBaseURL(cfg.Identify.BaseURL),
		identify.WithLayer(cfg.Identify.Layer),
		identify.WithTolerance(cfg.Identify.TolerancePx),
		identify.WithBoxRadius(cfg.Identify.BoxRadius),
		identify.WithRateLimit(cfg.Identify.RateLimitRPS),
	)
}

// openCache builds the configured cache. Postgres backends are migrated on
// open; sqlite migrates itself.
func openCache(ctx context.Context) (*cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return cache.New(nil), nil
	case "sqlite":
		backend, err := cache.NewSQLite(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		return cache.New(backend), nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Cache.DatabaseURL)
		if err != nil {
			return nil, err
		}
		backend := cache.NewPostgres(pool)
		if err := backend.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return cache.New(backend), nil
	case "redis":
		backend, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		return cache.New(backend), nil
	default:
		return nil, eris.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

// newSampler wires the sampling engine from config. workers overrides the
// configured worker count when > 0; c may be nil to bypass caching.
func newSampler(c *cache.Cache, workers int) *sampler.Sampler {
	if workers <= 0 {
		workers = cfg.Sampler.Workers
	}
	return sampler.New(newProjector(), newLookup(), c, sampler.Config{
		Workers:            workers,
		MinSamples:         cfg.Sampler.MinSamples,
		StabilityThreshold: cfg.Sampler.StabilityCV,
		BaseResolution:     cfg.Sampler.BaseResolution,
		MaxResolution:      cfg.Sampler.MaxResolution,
	})
}
