// Package fetcher builds the shared HTTP client used by the evidence
// collaborators: per-call timeout, bounded connection pool, per-host rate
// limiting and retry of transient failures.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/turnover-cli/internal/resilience"
)

// DefaultUserAgent is sent when a request carries no User-Agent header.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121 Safari/537.36"

// HTTPOptions configures the shared client.
type HTTPOptions struct {
	UserAgent       string
	Timeout         time.Duration // bounds one call, retries included
	MaxConnsPerHost int
	Retry           resilience.RetryConfig
	// Limiters throttles requests per host (e.g. "html.duckduckgo.com").
	Limiters map[string]*AdaptiveLimiter
}

// AdaptiveLimiter wraps a rate.Limiter that slows down on 429 responses
// and recovers on success. The rate moves between initial/4 and initial*2.
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initialRate.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate, down to initial/4.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("fetcher: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// NewClient returns an *http.Client whose transport applies the options.
// The client is safe for concurrent use across records.
func NewClient(opts HTTPOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxConnsPerHost,
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			base:      base,
			userAgent: opts.UserAgent,
			retry:     opts.Retry,
			limiters:  opts.Limiters,
		},
	}
}

type retryTransport struct {
	base      http.RoundTripper
	userAgent string
	retry     resilience.RetryConfig
	limiters  map[string]*AdaptiveLimiter
}

// RoundTrip sends req, retrying GET and HEAD requests on transient network
// errors and retryable status codes.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	limiter := t.limiters[req.URL.Host]

	send := func(ctx context.Context) (*http.Response, error) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "fetcher: rate limiter wait")
			}
		}

		out := req.Clone(ctx)
		if out.Header.Get("User-Agent") == "" {
			out.Header.Set("User-Agent", t.userAgent)
		}

		resp, err := t.base.RoundTrip(out)
		if err != nil {
			return nil, err
		}

		if resilience.IsRetryableStatus(resp.StatusCode) {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
			_ = resp.Body.Close()
			if limiter != nil && resp.StatusCode == http.StatusTooManyRequests {
				limiter.OnRateLimit()
			}
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: %s returned status %d", req.URL.Host, resp.StatusCode),
				resp.StatusCode,
			)
		}

		if limiter != nil {
			limiter.OnSuccess()
		}
		return resp, nil
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return send(req.Context())
	}

	cfg := t.retry
	cfg.OnRetry = resilience.RetryLogger("http", req.URL.Host)
	return resilience.DoVal(req.Context(), cfg, send)
}
