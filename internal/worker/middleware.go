package worker

import (
	"context"
	"errors"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/socialchef/recipekeeper/internal/telemetry"
)

type taskInfo struct {
	id      string
	queue   string
	retried int
}

func taskInfoFrom(ctx context.Context) taskInfo {
	id, _ := asynq.GetTaskID(ctx)
	queue, _ := asynq.GetQueueName(ctx)
	retried, _ := asynq.GetRetryCount(ctx)
	return taskInfo{id: id, queue: queue, retried: retried}
}

// OTelMiddleware starts a consumer span per task. Skipped tasks keep an OK
// status; only failures that will be retried are marked as errors.
func OTelMiddleware(h asynq.Handler) asynq.Handler {
	tracer := telemetry.Tracer("recipekeeper/worker")

	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		info := taskInfoFrom(ctx)
		ctx, span := tracer.Start(ctx, "task "+t.Type(),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("task.id", info.id),
				attribute.String("task.type", t.Type()),
				attribute.String("task.queue", info.queue),
				attribute.Int("task.retry_count", info.retried),
			),
		)
		defer span.End()

		err := h.ProcessTask(ctx, t)
		span.SetAttributes(attribute.String("task.status", jobStatus(err)))
		if err != nil {
			span.RecordError(err)
			if !errors.Is(err, asynq.SkipRetry) {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		return err
	})
}

// SentryMiddleware reports task failures to Sentry. Skipped tasks ("no
// recipe found", unsupported URL) and quota back-offs are expected outcomes
// and are not reported.
func SentryMiddleware(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		info := taskInfoFrom(ctx)

		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("task_type", t.Type())
			scope.SetTag("task_id", info.id)
			scope.SetTag("queue", info.queue)
			scope.SetTag("retry_count", strconv.Itoa(info.retried))
		})
		ctx = sentry.SetHubOnContext(ctx, hub)

		err := h.ProcessTask(ctx, t)
		if err != nil && !errors.Is(err, asynq.SkipRetry) && !isQuota(err) {
			hub.CaptureException(err)
		}
		return err
	})
}
