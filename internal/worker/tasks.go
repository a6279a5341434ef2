package worker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeWarmRecipe   = "warm:recipe"
	TypeWarmBatch    = "warm:batch"
	TypeCleanupMedia = "cleanup:media"
)

// MaxBatchSize bounds the number of URLs in one warm batch.
const MaxBatchSize = 100

// ErrEmptyBatch is returned when a warm batch has no URLs.
var ErrEmptyBatch = errors.New("warm batch has no urls")

// ErrBatchTooLarge is returned when a warm batch exceeds MaxBatchSize.
var ErrBatchTooLarge = errors.New("warm batch exceeds the maximum size")

// WarmRecipePayload is the payload for single URL cache warm tasks
type WarmRecipePayload struct {
	URL string `json:"url"`
	// Refresh bypasses the cache read so the stored recipe is replaced.
	Refresh bool `json:"refresh,omitempty"`
}

// WarmBatchPayload is the payload for batch cache warm tasks
type WarmBatchPayload struct {
	URLs    []string `json:"urls"`
	Refresh bool     `json:"refresh,omitempty"`
}

// NewWarmRecipeTask creates a new cache warm task for one URL
func NewWarmRecipeTask(payload WarmRecipePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWarmRecipe, data, asynq.MaxRetry(5), asynq.Timeout(5*time.Minute)), nil
}

// NewWarmBatchTask creates a new cache warm task for a list of URLs
func NewWarmBatchTask(payload WarmBatchPayload) (*asynq.Task, error) {
	switch {
	case len(payload.URLs) == 0:
		return nil, ErrEmptyBatch
	case len(payload.URLs) > MaxBatchSize:
		return nil, ErrBatchTooLarge
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWarmBatch, data, asynq.MaxRetry(3), asynq.Timeout(30*time.Minute)), nil
}

// NewCleanupMediaTask creates a new media sweep task
func NewCleanupMediaTask() *asynq.Task {
	return asynq.NewTask(TypeCleanupMedia, nil, asynq.MaxRetry(0), asynq.Unique(10*time.Minute))
}
