package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WorkerMetrics records task and per-URL warm outcomes. A nil
// *WorkerMetrics records nothing.
type WorkerMetrics struct {
	tasks    metric.Int64Counter
	duration metric.Float64Histogram
	warmed   metric.Int64Counter
}

func NewWorkerMetrics() (*WorkerMetrics, error) {
	meter := otel.Meter("recipekeeper/worker")

	tasks, err := meter.Int64Counter(
		"worker.tasks.total",
		metric.WithDescription("Background tasks processed, by type and status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"worker.task.duration",
		metric.WithDescription("Duration of background tasks"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 900),
	)
	if err != nil {
		return nil, err
	}

	warmed, err := meter.Int64Counter(
		"worker.warm.urls.total",
		metric.WithDescription("URLs warmed into the recipe cache, by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerMetrics{tasks: tasks, duration: duration, warmed: warmed}, nil
}

// RecordJob records one finished task.
func (m *WorkerMetrics) RecordJob(ctx context.Context, taskType, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	typeAttr := attribute.String("task.type", taskType)
	m.tasks.Add(ctx, 1, metric.WithAttributes(typeAttr, attribute.String("status", status)))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(typeAttr))
}

// RecordWarm records the result of warming one URL.
func (m *WorkerMetrics) RecordWarm(ctx context.Context, err error) {
	if m == nil {
		return
	}
	m.warmed.Add(ctx, 1, metric.WithAttributes(attribute.String("result", jobStatus(err))))
}
