package worker

import (
	"time"

	"github.com/hibiken/asynq"
)

// MediaSweepSchedule runs the media sweep every 15 minutes.
const MediaSweepSchedule = "@every 15m"

// NewServer creates a new Asynq server for processing tasks
func NewServer(redisURL string, concurrency int) *asynq.Server {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		panic("failed to parse Redis URL: " + err.Error())
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: concurrency,
			// Quota failures back off longer than the default so the
			// provider window can reset.
			RetryDelayFunc: func(n int, err error, t *asynq.Task) time.Duration {
				if isQuota(err) {
					return time.Duration(n+1) * 10 * time.Minute
				}
				return asynq.DefaultRetryDelayFunc(n, err, t)
			},
		},
	)
}

// NewScheduler creates the scheduler that enqueues periodic tasks.
func NewScheduler(redisURL string) (*asynq.Scheduler, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})
	if _, err := s.Register(MediaSweepSchedule, NewCleanupMediaTask()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewMux registers the task handlers behind the tracing and Sentry
// middleware.
func NewMux(p *Processor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(SentryMiddleware)
	mux.Use(OTelMiddleware)
	mux.HandleFunc(TypeWarmRecipe, p.HandleWarmRecipe)
	mux.HandleFunc(TypeWarmBatch, p.HandleWarmBatch)
	mux.HandleFunc(TypeCleanupMedia, p.HandleCleanupMedia)
	return mux
}
