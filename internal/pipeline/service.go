package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipekeeper/internal/cache"
	apperrors "github.com/socialchef/recipekeeper/internal/errors"
	"github.com/socialchef/recipekeeper/internal/metrics"
	"github.com/socialchef/recipekeeper/internal/platform"
	"github.com/socialchef/recipekeeper/internal/recipe"
)

// Cache is the part of the cache facade the service uses.
type Cache interface {
	Get(ctx context.Context, key string) (*cache.Entry, bool)
	Set(ctx context.Context, key string, r *recipe.Recipe, canonicalURL string, p recipe.Platform)
}

// VideoExtractor extracts a recipe from a video URL.
type VideoExtractor interface {
	Extract(ctx context.Context, videoURL string, p recipe.Platform) (*recipe.Recipe, recipe.Method, error)
}

// Result is the outcome of a successful extraction.
type Result struct {
	Recipe    *recipe.Recipe
	Platform  recipe.Platform
	Method    recipe.Method
	FromCache bool
	CachedAt  *time.Time
}

// Service classifies a URL, consults the cache and dispatches to the right
// orchestrator.
type Service struct {
	cache   Cache
	website WebsiteExtractor
	video   VideoExtractor
}

// NewService wires the service. cache may be nil to disable caching.
func NewService(c Cache, website WebsiteExtractor, video VideoExtractor) *Service {
	return &Service{cache: c, website: website, video: video}
}

// Extract returns the recipe behind rawURL. When useCache is false the cache
// is not read, but a fresh result still replaces the cached one. Failures are
// always *apperrors.AppError values, except context cancellation.
func (s *Service) Extract(ctx context.Context, rawURL string, useCache bool) (*Result, error) {
	start := time.Now()

	p, ok := platform.Classify(rawURL)
	if !ok {
		s.record(ctx, "unsupported", "", "unsupported", start)
		return nil, apperrors.NewUnsupportedError(
			"Unsupported URL. Please provide a YouTube, TikTok, Instagram or recipe website link.",
		)
	}

	canonicalID, key := platform.NormalizeAndHash(rawURL, p)
	log := slog.With("url", rawURL, "platform", p, "cache_key", key)

	if useCache && s.cache != nil {
		if entry, hit := s.cache.Get(ctx, key); hit {
			log.Info("Serving recipe from cache")
			storedAt := entry.StoredAt
			s.record(ctx, p, recipe.MethodCache, "success", start)
			return &Result{
				Recipe:    entry.Recipe.Clone(),
				Platform:  p,
				Method:    recipe.MethodCache,
				FromCache: true,
				CachedAt:  &storedAt,
			}, nil
		}
	}

	var (
		r      *recipe.Recipe
		method recipe.Method
		err    error
	)
	if p == recipe.PlatformWebsite {
		r, method, err = s.website.Extract(ctx, rawURL)
	} else {
		r, method, err = s.video.Extract(ctx, rawURL, p)
	}

	if err != nil {
		err = asAppError(err)
		log.Warn("Extraction failed", "error", err)
		s.record(ctx, p, "", outcome(err), start)
		return nil, err
	}
	if r == nil {
		log.Info("No recipe found")
		s.record(ctx, p, "", "not_found", start)
		return nil, notFoundError(p)
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, r, canonicalID, p)
	}
	log.Info("Recipe extracted", "method", method)
	s.record(ctx, p, method, "success", start)
	return &Result{Recipe: r, Platform: p, Method: method}, nil
}

func (s *Service) record(ctx context.Context, p recipe.Platform, method recipe.Method, outcome string, start time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("platform", string(p)),
		attribute.String("method", string(method)),
		attribute.String("outcome", outcome),
	)
	metrics.ExtractionRequestsTotal.Add(ctx, 1, attrs)
	metrics.ExtractionDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

func notFoundError(p recipe.Platform) *apperrors.AppError {
	switch p {
	case recipe.PlatformWebsite:
		return apperrors.NewNotFoundError(
			"Could not find a recipe on this page.",
			"RECIPE_NOT_FOUND",
			"Make sure the link points to a single recipe page.",
		)
	case recipe.PlatformTikTok:
		return apperrors.NewNotFoundError(
			"No recipe found in description, comments, video, or author's website.",
			"RECIPE_NOT_FOUND",
			"Try a video that shows or lists the recipe.",
		)
	default:
		return apperrors.NewNotFoundError(
			"No recipe found in description, comments, or video.",
			"RECIPE_NOT_FOUND",
			"Try a video that shows or lists the recipe.",
		)
	}
}

func asAppError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewScraperError("Extraction timed out.", "EXTRACTION_TIMEOUT", err)
	}
	return apperrors.NewInternalError("Extraction failed unexpectedly.", err)
}

func outcome(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return string(appErr.Type)
	}
	return "canceled"
}
