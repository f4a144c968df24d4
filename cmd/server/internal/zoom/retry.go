package zoom

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy controls how Transport retries a call.
type RetryPolicy struct {
	// Limit is the total number of attempts, including the first one.
	Limit int
	// Methods lists the HTTP methods that may be retried.
	Methods []string
	// StatusCodes lists the response statuses that trigger a retry.
	StatusCodes []int
	// AfterStatusCodes lists the statuses whose Retry-After header is honoured.
	AfterStatusCodes []int
	// BaseDelay is the first backoff step; attempt n waits BaseDelay * 2^(n-1).
	BaseDelay time.Duration
	// MaxRetryAfter caps every wait, computed or server-provided.
	MaxRetryAfter time.Duration
}

// DefaultRetryPolicy returns the relay's retry policy: 3 attempts, 0.3s exponential
// backoff, waits capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Limit: 3,
		Methods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
		StatusCodes:      []int{408, 413, 429, 500, 502, 503, 504, 521, 522, 524},
		AfterStatusCodes: []int{413, 429, 503},
		BaseDelay:        300 * time.Millisecond,
		MaxRetryAfter:    10 * time.Second,
	}
}

// attemptsFor returns how many attempts a call with the given method may use.
func (p RetryPolicy) attemptsFor(method string) int {
	if p.Limit < 1 {
		return 1
	}
	for _, m := range p.Methods {
		if strings.EqualFold(m, method) {
			return p.Limit
		}
	}
	return 1
}

func (p RetryPolicy) retryableStatus(code int) bool {
	return containsInt(p.StatusCodes, code)
}

// delay returns the wait before the attempt following `attempt` (1-based).
func (p RetryPolicy) delay(attempt, status int, header http.Header, now time.Time) time.Duration {
	d := p.BaseDelay << (attempt - 1)
	if header != nil && containsInt(p.AfterStatusCodes, status) {
		if after, ok := parseRetryAfter(header.Get("Retry-After"), now); ok {
			d = after
		}
	}
	if p.MaxRetryAfter > 0 && d > p.MaxRetryAfter {
		d = p.MaxRetryAfter
	}
	if d < 0 {
		d = 0
	}
	return d
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		return at.Sub(now), true
	}
	return 0, false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
