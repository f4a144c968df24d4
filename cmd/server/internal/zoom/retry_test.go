package zoom

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy()
	now := time.Now()

	assert.Equal(t, 300*time.Millisecond, p.delay(1, http.StatusServiceUnavailable, nil, now))
	assert.Equal(t, 600*time.Millisecond, p.delay(2, http.StatusServiceUnavailable, nil, now))
	assert.Equal(t, 10*time.Second, p.delay(10, http.StatusServiceUnavailable, nil, now), "capped by MaxRetryAfter")
}

func TestRetryPolicy_RetryAfterOnlyForAfterStatusCodes(t *testing.T) {
	p := DefaultRetryPolicy()
	h := http.Header{}
	h.Set("Retry-After", "5")

	assert.Equal(t, 5*time.Second, p.delay(1, http.StatusTooManyRequests, h, time.Now()))
	assert.Equal(t, 300*time.Millisecond, p.delay(1, http.StatusBadGateway, h, time.Now()))
}

func TestRetryPolicy_AttemptsFor(t *testing.T) {
	p := DefaultRetryPolicy()

	for _, m := range []string{"GET", "post", "PUT", "PATCH", "DELETE"} {
		assert.Equal(t, 3, p.attemptsFor(m), m)
	}
	assert.Equal(t, 1, p.attemptsFor(http.MethodHead))
	assert.Equal(t, 1, RetryPolicy{}.attemptsFor(http.MethodGet))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "empty", value: "", wantOK: false},
		{name: "seconds", value: "3", want: 3 * time.Second, wantOK: true},
		{name: "negative", value: "-1", wantOK: false},
		{name: "http date", value: now.Add(4 * time.Second).Format(http.TimeFormat), want: 4 * time.Second, wantOK: true},
		{name: "garbage", value: "soon", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.value, now)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
