// Package cache stores extracted recipes under their canonical cache key in
// two tiers: a bounded in-process tier and an optional durable Redis tier.
package cache

import (
	"context"
	"time"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

// Entry is a cached extraction result.
type Entry struct {
	Recipe       *recipe.Recipe  `json:"recipe"`
	CanonicalURL string          `json:"canonicalUrl"`
	Platform     recipe.Platform `json:"platform"`
	StoredAt     time.Time       `json:"storedAt"`
}

func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Recipe = e.Recipe.Clone()
	return &c
}

// Store is a durable cache tier. Get returns nil, nil on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Stats is a point-in-time snapshot of cache usage.
type Stats struct {
	Enabled          bool    `json:"enabled"`
	DurableAvailable bool    `json:"durableAvailable"`
	DurableSize      int64   `json:"durableSize"`
	FastSize         int     `json:"fastSize"`
	DurableHits      int64   `json:"durableHits"`
	FastHits         int64   `json:"fastHits"`
	Misses           int64   `json:"misses"`
	HitRate          float64 `json:"hitRate"`
	DurableErrors    int64   `json:"durableErrors"`
}
