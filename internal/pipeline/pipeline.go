// Package pipeline decides, for a URL, which extraction layers to try and in
// what order. Website pages go through markup layers before the language
// model; videos go through their description, comments and finally the
// media itself.
package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipekeeper/internal/metrics"
	"github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/services/fetcher"
	generation "github.com/socialchef/recipekeeper/internal/services/recipe"
	"github.com/socialchef/recipekeeper/internal/services/video"
)

// PageFetcher loads a web page, following redirects.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) (*fetcher.Page, error)
}

// RecipeExtractor asks the language model for a recipe. A nil recipe with a
// nil error means nothing was found; an error is a hard failure.
type RecipeExtractor interface {
	ExtractFromText(ctx context.Context, in generation.TextInput) (*recipe.Recipe, error)
	ExtractFromMedia(ctx context.Context, in generation.MediaInput) (*recipe.Recipe, error)
}

// VideoSource reads video metadata and downloads media.
type VideoSource interface {
	GetInfo(ctx context.Context, videoURL string) (*video.Info, error)
	Download(ctx context.Context, videoURL string) (string, error)
	Cleanup(path string)
}

// WebsiteDiscoverer finds a creator's own website.
type WebsiteDiscoverer interface {
	Discover(ctx context.Context, description, profileURL string) string
}

// WebsiteExtractor extracts a recipe from a web page.
type WebsiteExtractor interface {
	Extract(ctx context.Context, pageURL string) (*recipe.Recipe, recipe.Method, error)
}

// Layer results recorded in extraction.layer.attempts.total.
const (
	resultFound   = "found"
	resultEmpty   = "empty"
	resultSkipped = "skipped"
	resultError   = "error"
)

func recordLayer(ctx context.Context, layer string, platform recipe.Platform, pageURL, result string) {
	metrics.LayerAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("layer", layer),
		attribute.String("platform", string(platform)),
		attribute.String("result", result),
	))
	slog.Info("Extraction layer finished", "layer", layer, "url", pageURL, "platform", platform, "result", result)
}
