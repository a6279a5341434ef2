// Package fetcher retrieves web pages for markup extraction. Plain HTTP is
// tried first; a headless Chrome fetch can be enabled for pages that refuse
// non-browser clients.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/socialchef/recipekeeper/internal/httpclient"
	"github.com/socialchef/recipekeeper/internal/metrics"
	"github.com/socialchef/recipekeeper/internal/utils"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout   = 10 * time.Second
	defaultMaxBody   = 5 << 20

	// maxHostLimiters caps the per-host limiter map. When it is full, hosts
	// idle for longer than limiterIdleTTL are dropped first, then the least
	// recently used one.
	maxHostLimiters = 1024
	limiterIdleTTL  = 10 * time.Minute
)

var (
	// ErrBlocked means the site refused the request (403 or 429).
	ErrBlocked = errors.New("access blocked by site")
	// ErrNotHTML means the response was not a markup document.
	ErrNotHTML = errors.New("response is not HTML")
)

// StatusError is a non-success HTTP status other than the blocking ones.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Page is a fetched document.
type Page struct {
	HTML        string
	FinalURL    string
	StatusCode  int
	UsedBrowser bool
	FetchTime   time.Duration
}

// Options configures a Fetcher.
type Options struct {
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
	UserAgent       string
	MaxBodyBytes    int64
	BrowserFallback bool
	ChromePath      string
}

// Fetcher fetches pages with per-host rate limiting and retries.
type Fetcher struct {
	client *http.Client
	opts   Options

	mu       sync.Mutex
	limiters map[string]*hostLimiter
	now      func() time.Time

	browse func(ctx context.Context, targetURL string) (*Page, error)
}

// New creates a fetcher. Zero-valued options take defaults.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}

	f := &Fetcher{
		client:   httpclient.NewInstrumentedClient(opts.Timeout),
		opts:     opts,
		limiters: make(map[string]*hostLimiter),
		now:      time.Now,
	}
	if opts.BrowserFallback {
		f.browse = func(ctx context.Context, targetURL string) (*Page, error) {
			return withBrowser(ctx, targetURL, f.opts)
		}
	}
	return f
}

// Fetch follows redirects and returns the page along with its final URL.
// Transport failures and 5xx responses are retried. When the plain fetch
// fails and browser fallback is enabled, the page is loaded in Chrome.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	u, err := url.Parse(targetURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", targetURL)
	}

	start := time.Now()
	page, err := utils.WithRetry(ctx, func(ctx context.Context) (*Page, error) {
		return f.fetchHTTP(ctx, targetURL, u.Hostname())
	}, retryConfig(f.opts.Timeout))

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(attribute.String("provider", "website"), attribute.String("status", status))
	metrics.ExternalAPICallsTotal.Add(ctx, 1, attrs)
	metrics.ExternalAPIDuration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err == nil {
		page.FetchTime = time.Since(start)
		return page, nil
	}
	if f.browse == nil || ctx.Err() != nil || errors.Is(err, ErrNotHTML) {
		return nil, err
	}

	slog.Info("HTTP fetch failed, retrying with browser", "url", targetURL, "error", err)
	page, browserErr := f.browse(ctx, targetURL)
	if browserErr != nil {
		return nil, fmt.Errorf("%w; %v", err, browserErr)
	}
	page.FetchTime = time.Since(start)
	return page, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, targetURL, host string) (*Page, error) {
	if err := f.limiter(host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(httpclient.WithProvider(ctx, "website"), http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w (status %d)", ErrBlocked, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !isMarkup(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrNotHTML, contentType)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, f.opts.MaxBodyBytes), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Page{
		HTML:       string(data),
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}, nil
}

func retryConfig(timeout time.Duration) utils.RetryConfig {
	return utils.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      4 * time.Second,
		BackoffFactor: 2.0,
		Timeout:       timeout,
		Retryable:     isTransient,
	}
}

// isTransient reports whether a fetch attempt may succeed when repeated:
// transport failures, timeouts and 5xx responses. A site that answered 4xx
// or blocked us is final.
func isTransient(err error) bool {
	if errors.Is(err, ErrBlocked) || errors.Is(err, ErrNotHTML) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}
	if utils.IsTimeout(err) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

type hostLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if hl, ok := f.limiters[host]; ok {
		hl.lastUsed = now
		return hl.limiter
	}

	if len(f.limiters) >= maxHostLimiters {
		f.evictLimiters(now)
	}
	hl := &hostLimiter{
		limiter:  rate.NewLimiter(rate.Limit(f.opts.RatePerSecond), f.opts.Burst),
		lastUsed: now,
	}
	f.limiters[host] = hl
	return hl.limiter
}

// evictLimiters makes room for one more host. Callers hold f.mu.
func (f *Fetcher) evictLimiters(now time.Time) {
	var oldestHost string
	var oldest time.Time
	for host, hl := range f.limiters {
		if now.Sub(hl.lastUsed) > limiterIdleTTL {
			delete(f.limiters, host)
			continue
		}
		if oldestHost == "" || hl.lastUsed.Before(oldest) {
			oldestHost, oldest = host, hl.lastUsed
		}
	}
	if len(f.limiters) >= maxHostLimiters && oldestHost != "" {
		delete(f.limiters, oldestHost)
	}
}

func isMarkup(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "html") || strings.Contains(ct, "xml") || strings.HasPrefix(ct, "text/plain")
}

// Document parses a fetched page.
func Document(page *Page) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

