package recipe

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipekeeper/internal/errors"
	"github.com/socialchef/recipekeeper/internal/metrics"
)

// FallbackGenerator implements Generator with fallback logic
type FallbackGenerator struct {
	Primary   Generator
	Secondary Generator
}

// NewFallbackGenerator creates a new fallback generator
func NewFallbackGenerator(primary, secondary Generator) *FallbackGenerator {
	return &FallbackGenerator{
		Primary:   primary,
		Secondary: secondary,
	}
}

func (f *FallbackGenerator) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// Generate tries the primary generator first and falls back to the secondary
// on retryable errors. When both fail and either hit a quota limit, the
// result is ErrQuotaExceeded so callers stop trying further layers.
func (f *FallbackGenerator) Generate(ctx context.Context, prompt string, media *Media) (string, error) {
	result, err := f.Primary.Generate(ctx, prompt, media)
	if err == nil {
		return result, nil
	}

	providerErr := ClassifyError(err, f.Primary.Name())

	if !IsRetryableError(err) {
		slog.Info("Primary provider failed with non-retryable error, not attempting fallback",
			"provider", providerErr.Provider,
			"error_type", providerErr.Type,
			"error", err.Error())
		return "", err
	}

	slog.Info("Primary provider failed with retryable error, attempting fallback",
		"provider", providerErr.Provider,
		"error_type", providerErr.Type,
		"error", err.Error(),
		"media", media != nil)

	metrics.ProviderFallbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from_provider", providerErr.Provider),
		attribute.String("to_provider", f.Secondary.Name()),
		attribute.String("reason", providerErr.Type),
	))

	result, fallbackErr := f.Secondary.Generate(ctx, prompt, media)
	if fallbackErr == nil {
		slog.Info("Fallback provider succeeded",
			"primary_error_type", providerErr.Type,
			"provider", f.Secondary.Name())
		return result, nil
	}

	fallbackProviderErr := ClassifyError(fallbackErr, f.Secondary.Name())
	slog.Error("Both primary and secondary providers failed",
		"primary_error_type", providerErr.Type,
		"primary_error", err.Error(),
		"fallback_error_type", fallbackProviderErr.Type,
		"fallback_error", fallbackErr.Error())

	if IsQuotaError(err) || IsQuotaError(fallbackErr) {
		return "", fmt.Errorf("%w: %s: %v; %s: %v", ErrQuotaExceeded,
			f.Primary.Name(), err, f.Secondary.Name(), fallbackErr)
	}

	return "", errors.NewRecipeGenerationError(
		"both primary and secondary providers failed",
		"PROVIDER_FALLBACK_FAILED",
		err,
	)
}
