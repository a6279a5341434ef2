package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/socialchef/recipekeeper/internal/metrics"
	"github.com/socialchef/recipekeeper/internal/recipe"
)

// Facade reads the fast tier first and the durable tier second. Durable
// failures never fail a request; they are logged and counted.
type Facade struct {
	fast    *memoryTier
	durable Store
	ttl     time.Duration
	now     func() time.Time

	fastHits      atomic.Int64
	durableHits   atomic.Int64
	misses        atomic.Int64
	durableErrors atomic.Int64
}

// NewFacade creates a facade. durable may be nil for an in-process only cache.
func NewFacade(durable Store, maxItems int, ttl time.Duration) *Facade {
	return &Facade{
		fast:    newMemoryTier(maxItems, ttl),
		durable: durable,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached entry for key. A durable hit is copied into the
// fast tier.
func (f *Facade) Get(ctx context.Context, key string) (*Entry, bool) {
	if entry := f.fast.get(key); entry != nil {
		f.fastHits.Add(1)
		recordOp(ctx, "fast", "hit")
		return entry, true
	}

	if f.durable != nil {
		entry, err := f.durable.Get(ctx, key)
		switch {
		case err != nil:
			f.durableError(ctx, "get", key, err)
		case entry != nil && entry.Recipe != nil:
			f.durableHits.Add(1)
			recordOp(ctx, "durable", "hit")
			f.fast.set(key, entry)
			return entry.clone(), true
		}
	}

	f.misses.Add(1)
	recordOp(ctx, "all", "miss")
	return nil, false
}

// Set writes the recipe to both tiers.
func (f *Facade) Set(ctx context.Context, key string, r *recipe.Recipe, canonicalURL string, platform recipe.Platform) {
	entry := &Entry{
		Recipe:       r.Clone(),
		CanonicalURL: canonicalURL,
		Platform:     platform,
		StoredAt:     f.now().UTC(),
	}

	f.fast.set(key, entry)
	recordOp(ctx, "fast", "set")

	if f.durable != nil {
		if err := f.durable.Set(ctx, key, entry, f.ttl); err != nil {
			f.durableError(ctx, "set", key, err)
			return
		}
		recordOp(ctx, "durable", "set")
	}
}

// Delete removes key from both tiers.
func (f *Facade) Delete(ctx context.Context, key string) error {
	f.fast.delete(key)
	if f.durable == nil {
		return nil
	}
	if err := f.durable.Delete(ctx, key); err != nil {
		f.durableError(ctx, "delete", key, err)
		return err
	}
	return nil
}

// Clear empties both tiers.
func (f *Facade) Clear(ctx context.Context) error {
	f.fast.clear()
	if f.durable == nil {
		return nil
	}
	if err := f.durable.Clear(ctx); err != nil {
		f.durableError(ctx, "clear", "*", err)
		return err
	}
	return nil
}

// DurableAvailable reports whether the durable tier answers a ping.
func (f *Facade) DurableAvailable(ctx context.Context) bool {
	return f.durable != nil && f.durable.Ping(ctx) == nil
}

// Stats returns the current counters and tier sizes.
func (f *Facade) Stats(ctx context.Context) Stats {
	s := Stats{
		Enabled:       true,
		FastSize:      f.fast.len(),
		FastHits:      f.fastHits.Load(),
		DurableHits:   f.durableHits.Load(),
		Misses:        f.misses.Load(),
		DurableErrors: f.durableErrors.Load(),
	}

	if f.DurableAvailable(ctx) {
		s.DurableAvailable = true
		if n, err := f.durable.Size(ctx); err == nil {
			s.DurableSize = n
		} else {
			f.durableError(ctx, "size", "*", err)
			s.DurableErrors = f.durableErrors.Load()
		}
	}

	if total := s.FastHits + s.DurableHits + s.Misses; total > 0 {
		s.HitRate = float64(s.FastHits+s.DurableHits) / float64(total)
	}
	return s
}

func (f *Facade) durableError(ctx context.Context, op, key string, err error) {
	f.durableErrors.Add(1)
	recordOp(ctx, "durable", "error")
	slog.Warn("Durable cache operation failed", "operation", op, "key", key, "error", err)
}

func recordOp(ctx context.Context, tier, result string) {
	metrics.CacheOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("result", result),
	))
}
