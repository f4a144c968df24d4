package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/houzhh15/zoomrelay/pkg/logger"
	"github.com/houzhh15/zoomrelay/pkg/metrics"
)

const (
	// DefaultRequestTimeout bounds each attempt, not the whole retried call.
	DefaultRequestTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
	maxDetailBytes   = 512
)

// TokenProvider hands out bearer tokens for outbound calls.
// *TokenSession is the production implementation.
type TokenProvider interface {
	EnsureValidToken(ctx context.Context) (string, error)
}

// Transport issues authenticated JSON requests against the API base URL and
// retries transient failures according to its RetryPolicy.
type Transport struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	policy     RetryPolicy
	timeout    time.Duration
	limiter    *ConcurrencyLimiter
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	log        *slog.Logger
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithHTTPClient overrides the client used for API calls.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.httpClient = c }
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) TransportOption {
	return func(t *Transport) { t.policy = p }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) TransportOption {
	return func(t *Transport) { t.timeout = d }
}

// WithLimiter sets the outbound concurrency limiter.
func WithLimiter(l *ConcurrencyLimiter) TransportOption {
	return func(t *Transport) { t.limiter = l }
}

// NewTransport creates a Transport rooted at baseURL.
func NewTransport(baseURL string, tokens TokenProvider, opts ...TransportOption) *Transport {
	t := &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
		policy:     DefaultRetryPolicy(),
		timeout:    DefaultRequestTimeout,
		limiter:    NewConcurrencyLimiter(DefaultMaxConcurrent),
		sleep:      sleepContext,
		now:        time.Now,
		log:        logger.L().With("component", "zoom-transport"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// attemptResult is the outcome of a single HTTP exchange.
type attemptResult struct {
	status int
	header http.Header
	body   []byte
	err    error
	// fatal errors end the call without further attempts.
	fatal bool
}

// Do sends method path with body encoded as JSON (nil for no body) and decodes a
// 2xx response into out (nil to discard it).
//
// Errors:
//   - AUTHENTICATION_FAILED when no token could be obtained
//   - UPSTREAM_UNAVAILABLE wrapping ctx.Err() when ctx ends while waiting for a token
//   - UPSTREAM_REJECTED for non-retryable 4xx responses (no retry)
//   - UPSTREAM_UNAVAILABLE once the retry budget is spent
//   - UPSTREAM_RESPONSE_INVALID when a 2xx body cannot be decoded into out
func (t *Transport) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to serialize request: %w", err)
		}
		payload = b
	}

	if err := t.limiter.Acquire(ctx); err != nil {
		return NewTransientUpstreamError(method, path, 0, 0, err)
	}
	defer t.limiter.Release()

	attempts := t.policy.attemptsFor(method)
	var (
		lastStatus int
		lastErr    error
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		res := t.attempt(ctx, method, path, payload, attempt)
		switch {
		case res.fatal:
			return res.err
		case res.err != nil:
			lastStatus, lastErr = 0, res.err
		case res.status >= 200 && res.status <= 299:
			return decodeResponse(res.body, out)
		case t.policy.retryableStatus(res.status):
			lastStatus, lastErr = res.status, fmt.Errorf("HTTP %d: %s", res.status, errorDetail(res.body))
		case res.status >= 500:
			return NewTransientUpstreamError(method, path, attempt, res.status, fmt.Errorf("HTTP %d: %s", res.status, errorDetail(res.body)))
		default:
			return NewUpstreamRejectionError(method, path, res.status, errorDetail(res.body))
		}

		if ctx.Err() != nil {
			return NewTransientUpstreamError(method, path, attempt, lastStatus, ctx.Err())
		}
		if attempt == attempts {
			break
		}

		wait := t.policy.delay(attempt, res.status, res.header, t.now())
		metrics.RecordUpstreamRetry(method, path)
		t.log.Warn("retrying upstream call",
			"method", method,
			"path", path,
			"attempt", attempt,
			"status", lastStatus,
			"wait_ms", wait.Milliseconds(),
		)
		if err := t.sleep(ctx, wait); err != nil {
			return NewTransientUpstreamError(method, path, attempt, lastStatus, err)
		}
	}

	return NewTransientUpstreamError(method, path, attempts, lastStatus, lastErr)
}

func (t *Transport) attempt(ctx context.Context, method, path string, payload []byte, n int) attemptResult {
	token, err := t.tokens.EnsureValidToken(ctx)
	if err != nil {
		var zerr *Error
		if !errors.As(err, &zerr) {
			// ctx 在等待 token 时结束
			err = NewTransientUpstreamError(method, path, n, 0, err)
		}
		return attemptResult{err: err, fatal: true}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, t.url(path), reader)
	if err != nil {
		return attemptResult{err: fmt.Errorf("failed to create HTTP request: %w", err), fatal: true}
	}
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		outcome := "network_error"
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			outcome = "timeout"
		}
		t.record(ctx, method, path, outcome, n, start, err)
		return attemptResult{err: fmt.Errorf("calling Zoom API (%s): %w", outcome, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		t.record(ctx, method, path, "network_error", n, start, err)
		return attemptResult{err: fmt.Errorf("reading Zoom API response: %w", err)}
	}

	var callErr error
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		callErr = fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	t.record(ctx, method, path, strconv.Itoa(resp.StatusCode), n, start, callErr)

	return attemptResult{status: resp.StatusCode, header: resp.Header, body: body}
}

func (t *Transport) record(ctx context.Context, method, path, outcome string, attempt int, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.RecordUpstreamRequest(method, path, outcome, elapsed.Seconds())
	logger.LogUpstreamCall(ctx, t.log, method, path, outcome, attempt, elapsed.Milliseconds(), err)
}

func (t *Transport) url(path string) string {
	return t.baseURL + "/" + strings.TrimLeft(path, "/")
}

func decodeResponse(body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return NewError(CodeUpstreamResponseInvalid, "empty response body", nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewError(CodeUpstreamResponseInvalid, "failed to parse response", err)
	}
	return nil
}

// errorDetail extracts Zoom's {code, message} error body, falling back to the raw text.
func errorDetail(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Code != 0 {
			return fmt.Sprintf("%s (code %d)", apiErr.Message, apiErr.Code)
		}
		return apiErr.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxDetailBytes {
		s = s[:maxDetailBytes] + "..."
	}
	return s
}
