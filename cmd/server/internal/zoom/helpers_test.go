package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ============================================================================
// Test Doubles (Fakes)
// ============================================================================

// fakeClock is a settable clock shared by session, signer and client.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// staticTokens is a TokenProvider returning a preset token or error.
type staticTokens struct {
	token string
	err   error
	calls atomic.Int32
}

func (s *staticTokens) EnsureValidToken(ctx context.Context) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

// fakeZoom is an httptest server that plays both the OAuth token endpoint and the REST API.
type fakeZoom struct {
	server      *httptest.Server
	tokenCalls  atomic.Int32
	apiCalls    atomic.Int32
	tokenStatus atomic.Int32
	expiresIn   atomic.Int64
	apiHandler  http.HandlerFunc
}

func newFakeZoom(t *testing.T) *fakeZoom {
	t.Helper()
	fz := &fakeZoom{}
	fz.tokenStatus.Store(http.StatusOK)
	fz.expiresIn.Store(3600)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		n := fz.tokenCalls.Add(1)
		if status := int(fz.tokenStatus.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"reason": "Invalid client_id or client_secret", "error": "invalid_client"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": fmt.Sprintf("tok-%d", n),
			"token_type":   "bearer",
			"expires_in":   fz.expiresIn.Load(),
			"scope":        "meeting:write:admin",
		})
	})
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		fz.apiCalls.Add(1)
		if fz.apiHandler != nil {
			fz.apiHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	fz.server = httptest.NewServer(mux)
	t.Cleanup(fz.server.Close)
	return fz
}

func (fz *fakeZoom) credentials() Credentials {
	return Credentials{
		AccountID:    "acct-1",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      fz.server.URL + "/oauth/token",
		BaseURL:      fz.server.URL + "/v2",
	}
}

// fastPolicy is DefaultRetryPolicy with millisecond backoff.
func fastPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.BaseDelay = time.Millisecond
	return p
}
