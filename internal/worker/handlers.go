package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/socialchef/recipekeeper/internal/errors"
	"github.com/socialchef/recipekeeper/internal/pipeline"
)

// MediaMaxAge is how old a downloaded media file must be before the sweep
// removes it.
const MediaMaxAge = time.Hour

// batchParallelism bounds concurrent extractions within one warm batch.
const batchParallelism = 4

// RecipeExtractor runs the extraction pipeline for a URL.
type RecipeExtractor interface {
	Extract(ctx context.Context, rawURL string, useCache bool) (*pipeline.Result, error)
}

// MediaSweeper removes stale downloaded media.
type MediaSweeper interface {
	SweepStale(maxAge time.Duration) (int, error)
}

// Processor handles background tasks.
type Processor struct {
	extractor RecipeExtractor
	media     MediaSweeper
	metrics   *WorkerMetrics
}

// NewProcessor creates a task processor. media and metrics may be nil.
func NewProcessor(extractor RecipeExtractor, media MediaSweeper, metrics *WorkerMetrics) *Processor {
	return &Processor{
		extractor: extractor,
		media:     media,
		metrics:   metrics,
	}
}

// HandleWarmRecipe extracts one URL so its recipe lands in the cache.
func (p *Processor) HandleWarmRecipe(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	var payload WarmRecipePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.metrics.RecordJob(ctx, t.Type(), "failed", time.Since(start))
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	err := p.warm(ctx, payload.URL, payload.Refresh)
	p.metrics.RecordWarm(ctx, err)
	p.metrics.RecordJob(ctx, t.Type(), jobStatus(err), time.Since(start))
	return err
}

// HandleWarmBatch extracts a list of URLs with bounded parallelism. Only
// failures worth retrying fail the task.
func (p *Processor) HandleWarmBatch(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	var payload WarmBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.metrics.RecordJob(ctx, t.Type(), "failed", time.Since(start))
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	var retryable []error
	failed := 0
	for _, o := range p.warmAll(ctx, payload.URLs, payload.Refresh) {
		if o.err == nil {
			continue
		}
		failed++
		if !errors.Is(o.err, asynq.SkipRetry) {
			retryable = append(retryable, o.err)
		}
	}

	slog.Info("Warm batch finished",
		"urls", len(payload.URLs),
		"failed", failed,
		"retryable", len(retryable),
	)

	err := errors.Join(retryable...)
	p.metrics.RecordJob(ctx, t.Type(), jobStatus(err), time.Since(start))
	return err
}

// HandleCleanupMedia removes downloaded media older than MediaMaxAge.
func (p *Processor) HandleCleanupMedia(ctx context.Context, t *asynq.Task) error {
	start := time.Now()
	if p.media == nil {
		return nil
	}

	removed, err := p.media.SweepStale(MediaMaxAge)
	if err != nil {
		slog.Error("Media sweep failed", "error", err)
	} else {
		slog.Info("Media sweep finished", "removed", removed)
	}
	p.metrics.RecordJob(ctx, t.Type(), jobStatus(err), time.Since(start))
	return err
}

// warmOutcome is the result of warming one URL of a batch.
type warmOutcome struct {
	err error
}

// warmAll warms urls with at most batchParallelism extractions in flight.
// URLs not yet started when ctx ends report ctx's error.
func (p *Processor) warmAll(ctx context.Context, urls []string, refresh bool) []warmOutcome {
	outcomes := make([]warmOutcome, len(urls))
	var g errgroup.Group
	g.SetLimit(batchParallelism)

	for i, u := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			err := p.warm(ctx, u, refresh)
			p.metrics.RecordWarm(ctx, err)
			outcomes[i].err = err
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// warm runs one extraction. Failures that will not change on retry are
// wrapped with asynq.SkipRetry.
func (p *Processor) warm(ctx context.Context, rawURL string, refresh bool) error {
	res, err := p.extractor.Extract(ctx, rawURL, !refresh)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && !appErr.IsRetryable() {
			slog.Warn("Warm extraction failed permanently", "url", rawURL, "error", err)
			return fmt.Errorf("warm %s: %v: %w", rawURL, err, asynq.SkipRetry)
		}
		slog.Warn("Warm extraction failed", "url", rawURL, "error", err)
		return fmt.Errorf("warm %s: %w", rawURL, err)
	}

	slog.Info("Recipe warmed", "url", rawURL, "method", res.Method, "from_cache", res.FromCache)
	return nil
}

func isQuota(err error) bool {
	return apperrors.IsQuota(err)
}

func jobStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, asynq.SkipRetry):
		return "skipped"
	default:
		return "failed"
	}
}
