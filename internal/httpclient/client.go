// Package httpclient builds outbound HTTP clients that trace every request
// and tag the span with the upstream provider (a generative backend or a
// fetched website).
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const providerKey contextKey = "httpclient.provider"

// WithProvider names the upstream for requests made with ctx.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

// Provider returns the upstream name set by WithProvider.
func Provider(ctx context.Context) string {
	provider, _ := ctx.Value(providerKey).(string)
	return provider
}

// providerTransport records the provider and response status on the span
// started by otelhttp.
type providerTransport struct {
	base http.RoundTripper
}

func (t *providerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	span := trace.SpanFromContext(req.Context())
	if provider := Provider(req.Context()); provider != "" {
		span.SetAttributes(attribute.String("provider", provider))
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		span.SetAttributes(attribute.Bool("provider.rate_limited", true))
	}
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP status %d", resp.StatusCode))
	}
	return resp, nil
}

func spanName(_ string, r *http.Request) string {
	if provider := Provider(r.Context()); provider != "" {
		return fmt.Sprintf("%s: %s %s", provider, r.Method, r.URL.Host)
	}
	return fmt.Sprintf("%s %s", r.Method, r.URL.Host)
}

// NewInstrumentedClient returns a traced client with the given overall
// request timeout. Redirects are followed as usual.
func NewInstrumentedClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(
			&providerTransport{base: http.DefaultTransport},
			otelhttp.WithSpanNameFormatter(spanName),
		),
		Timeout: timeout,
	}
}
