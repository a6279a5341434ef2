// Package app assembles the extraction pipeline from configuration. Both the
// HTTP server and the background worker build their dependencies here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/socialchef/recipekeeper/internal/cache"
	"github.com/socialchef/recipekeeper/internal/config"
	"github.com/socialchef/recipekeeper/internal/pipeline"
	"github.com/socialchef/recipekeeper/internal/services/fetcher"
	generation "github.com/socialchef/recipekeeper/internal/services/recipe"
	"github.com/socialchef/recipekeeper/internal/services/tiktok"
	"github.com/socialchef/recipekeeper/internal/services/video"
)

type App struct {
	Service *pipeline.Service
	// Cache is nil when caching is disabled.
	Cache *cache.Facade
	Media *video.Processor

	redis *redis.Client
}

// Build wires the extraction pipeline. The durable cache is optional: when
// Redis is unreachable the fast tier still serves.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	if cfg.CacheEnabled {
		var durable cache.Store
		if cfg.RedisURL != "" {
			client, err := cache.NewRedisClient(cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("redis client: %w", err)
			}
			a.redis = client
			store := cache.NewRedisStore(client)
			if err := store.Ping(ctx); err != nil {
				slog.Warn("Durable cache unavailable at startup", "error", err)
			}
			durable = store
		}
		a.Cache = cache.NewFacade(durable, cfg.CacheMaxItems, cfg.CacheTTL)
	}

	media, err := video.NewProcessor(video.Options{
		Binary:      cfg.YtDlpPath,
		TempDir:     cfg.TempDir,
		CookiesPath: cfg.YouTubeCookiesPath,
		Timeout:     cfg.VideoDownloadTimeout,
		MaxSizeMB:   cfg.MaxVideoSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("video processor: %w", err)
	}
	a.Media = media

	pages := fetcher.New(fetcher.Options{
		Timeout:         cfg.FetchTimeout,
		RatePerSecond:   cfg.FetchRatePerSecond,
		BrowserFallback: cfg.BrowserFallback,
		ChromePath:      cfg.ChromePath,
	})

	genCfg := cfg.Generation
	genCfg.FallbackEnabled = cfg.FallbackActive()
	generator := generation.NewGenerator(genCfg, generation.Credentials{
		GeminiKey:   cfg.GeminiAPIKey,
		GeminiModel: cfg.GeminiModel,
		GroqKey:     cfg.GroqAPIKey,
		GroqModel:   cfg.GroqModel,
	})
	ai := generation.NewExtractor(generator)

	website := pipeline.NewWebsiteOrchestrator(pages, ai, pipeline.DefaultWebsiteLayers())
	videos := pipeline.NewVideoOrchestrator(media, ai, tiktok.NewDiscoverer(pages), website)

	if a.Cache != nil {
		a.Service = pipeline.NewService(a.Cache, website, videos)
	} else {
		a.Service = pipeline.NewService(nil, website, videos)
	}

	slog.Info("Pipeline ready",
		"cache_enabled", a.Cache != nil,
		"durable_cache", a.redis != nil,
		"generation_provider", genCfg.Provider,
		"generation_fallback", genCfg.FallbackEnabled,
	)
	return a, nil
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
