package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	meter = otel.Meter("recipekeeper/business")

	// Extraction metrics
	ExtractionRequestsTotal metric.Int64Counter
	ExtractionDuration      metric.Float64Histogram
	LayerAttemptsTotal      metric.Int64Counter

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// AI metrics
	AIGenerationDuration metric.Float64Histogram

	// Provider fallback metrics
	ProviderFallbackTotal metric.Int64Counter

	// Cache metrics
	CacheOperationsTotal metric.Int64Counter
)

// Instruments start as no-ops so packages can record before Init runs,
// which is what happens in unit tests.
func init() {
	m := noop.NewMeterProvider().Meter("noop")
	ExtractionRequestsTotal, _ = m.Int64Counter("noop")
	ExtractionDuration, _ = m.Float64Histogram("noop")
	LayerAttemptsTotal, _ = m.Int64Counter("noop")
	ExternalAPICallsTotal, _ = m.Int64Counter("noop")
	ExternalAPIDuration, _ = m.Float64Histogram("noop")
	AIGenerationDuration, _ = m.Float64Histogram("noop")
	ProviderFallbackTotal, _ = m.Int64Counter("noop")
	CacheOperationsTotal, _ = m.Int64Counter("noop")
}

func Init() error {
	var err error

	// Extraction metrics
	ExtractionRequestsTotal, err = meter.Int64Counter(
		"extraction.requests.total",
		metric.WithDescription("Total number of recipe extraction requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExtractionDuration, err = meter.Float64Histogram(
		"extraction.duration",
		metric.WithDescription("Duration of a full extraction request"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	LayerAttemptsTotal, err = meter.Int64Counter(
		"extraction.layer.attempts.total",
		metric.WithDescription("Total number of extraction layer attempts by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	// External API metrics
	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	// AI metrics
	AIGenerationDuration, err = meter.Float64Histogram(
		"ai.generation.duration",
		metric.WithDescription("Duration of AI recipe generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	// Provider fallback metrics
	ProviderFallbackTotal, err = meter.Int64Counter(
		"provider.fallback.total",
		metric.WithDescription("Total number of provider fallback events"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	// Cache metrics
	CacheOperationsTotal, err = meter.Int64Counter(
		"cache.operations.total",
		metric.WithDescription("Total number of cache lookups by tier and result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
