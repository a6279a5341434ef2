package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/socialchef/recipekeeper/internal/errors"
)

// Init configures the Sentry client. An empty DSN leaves Sentry disabled and
// every capture becomes a no-op.
func Init(dsn, env, serviceName, serviceVersion string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		ServerName:       serviceName,
		Release:          serviceVersion,
		AttachStacktrace: true,
		// Tracing goes through OpenTelemetry.
		TracesSampleRate: 0.0,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return nil
}

// ShouldReport reports whether err is worth an event. Expected outcomes of
// an extraction (operational AppErrors such as "no recipe found" or a
// blocked site) and client disconnects are not.
func ShouldReport(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if appErr, ok := apperrors.As(err); ok {
		return !appErr.IsOperational
	}
	return true
}

// CaptureError sends err to the hub on ctx, or the global hub, when
// ShouldReport allows it.
func CaptureError(ctx context.Context, err error) {
	if !ShouldReport(err) {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// Flush waits for pending events. Call it during shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// Recover reports a panic to Sentry and re-panics. Use it directly with
// defer so recover() sees the panic.
func Recover() {
	if err := recover(); err != nil {
		sentry.CurrentHub().Recover(err)
		sentry.Flush(2 * time.Second)
		panic(err)
	}
}
