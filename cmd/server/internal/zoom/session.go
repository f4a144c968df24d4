package zoom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/houzhh15/zoomrelay/pkg/logger"
	"github.com/houzhh15/zoomrelay/pkg/metrics"
)

const (
	// DefaultTokenLeeway is how long before expiry a cached token stops being handed out.
	DefaultTokenLeeway = 30 * time.Second

	// tokenFetchTimeout bounds one call to the token endpoint.
	tokenFetchTimeout = 10 * time.Second

	// grantAccountCredentials is Zoom's Server-to-Server OAuth grant.
	grantAccountCredentials = "account_credentials"

	maxTokenBodyBytes = 1 << 20
)

// TokenSession owns the access token state for one credential set.
//
// Thread-safety: the token is guarded by mu; refreshes are coalesced through
// a singleflight group so concurrent callers share one token request.
type TokenSession struct {
	creds      Credentials
	httpClient *http.Client
	leeway     time.Duration
	now        func() time.Time
	log        *slog.Logger

	mu     sync.RWMutex
	cached *cachedToken

	flight singleflight.Group
}

// cachedToken pairs a token with the instant it stops being handed out.
type cachedToken struct {
	token     *oauth2.Token
	refreshAt time.Time
}

// SessionOption customizes a TokenSession.
type SessionOption func(*TokenSession)

// WithSessionHTTPClient overrides the client used to reach the token endpoint.
func WithSessionHTTPClient(c *http.Client) SessionOption {
	return func(s *TokenSession) { s.httpClient = c }
}

// WithLeeway overrides DefaultTokenLeeway.
func WithLeeway(d time.Duration) SessionOption {
	return func(s *TokenSession) { s.leeway = d }
}

// WithSessionClock overrides the clock (for tests).
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *TokenSession) { s.now = now }
}

// NewTokenSession creates a session with an empty token state.
func NewTokenSession(creds Credentials, opts ...SessionOption) *TokenSession {
	s := &TokenSession{
		creds:      creds,
		httpClient: &http.Client{Timeout: tokenFetchTimeout},
		leeway:     DefaultTokenLeeway,
		now:        time.Now,
		log:        logger.L().With("component", "zoom-session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureValidToken returns a usable access token, fetching a new one when
// none is cached or the cached one is about to expire.
// A failed fetch returns an AUTHENTICATION_FAILED error and leaves the state untouched.
// If ctx ends while waiting on a refresh, the context error is returned instead.
func (s *TokenSession) EnsureValidToken(ctx context.Context) (string, error) {
	tok, err := s.validToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// HasValidToken reports whether a usable token is cached. It never fetches.
func (s *TokenSession) HasValidToken() bool {
	return s.usable(s.load())
}

func (s *TokenSession) load() *cachedToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}

func (s *TokenSession) current() *oauth2.Token {
	if c := s.load(); c != nil {
		return c.token
	}
	return nil
}

func (s *TokenSession) usable(c *cachedToken) bool {
	if c == nil || c.token == nil || c.token.AccessToken == "" {
		return false
	}
	return s.now().Before(c.refreshAt)
}

// refreshPoint 提前 leeway 刷新；寿命不足 2*leeway 时只提前一半寿命
func (s *TokenSession) refreshPoint(tok *oauth2.Token, lifetime time.Duration) time.Time {
	leeway := s.leeway
	if half := lifetime / 2; leeway > half {
		leeway = half
	}
	return tok.Expiry.Add(-leeway)
}

func (s *TokenSession) validToken(ctx context.Context) (*oauth2.Token, error) {
	if c := s.load(); s.usable(c) {
		return c.token, nil
	}

	ch := s.flight.DoChan(grantAccountCredentials, func() (interface{}, error) {
		// Another flight may have stored a token between our check and this one.
		if c := s.load(); s.usable(c) {
			return c.token, nil
		}

		// 刷新与调用方 ctx 解耦，单个调用方取消不影响其他等待者
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenFetchTimeout)
		defer cancel()

		s.log.Info("requesting new access token")
		tok, lifetime, err := s.fetch(fetchCtx)
		if err != nil {
			metrics.RecordTokenRefresh("failed")
			s.log.Error("access token request failed", "error", err)
			return nil, err
		}
		metrics.RecordTokenRefresh("success")

		s.mu.Lock()
		s.cached = &cachedToken{token: tok, refreshAt: s.refreshPoint(tok, lifetime)}
		s.mu.Unlock()

		s.log.Info("access token refreshed", "expires_at", tok.Expiry.UTC().Format(time.RFC3339))
		return tok, nil
	})

	select {
	case <-ctx.Done():
		// 调用方放弃等待，不是凭证问题
		return nil, fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

// tokenErrorResponse is the error body of the Zoom token endpoint.
type tokenErrorResponse struct {
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// fetch performs POST <authURL>?grant_type=account_credentials&account_id=<id> with Basic auth.
// It also returns the token lifetime reported by the endpoint.
func (s *TokenSession) fetch(ctx context.Context) (*oauth2.Token, time.Duration, error) {
	u, err := url.Parse(s.creds.AuthURL)
	if err != nil {
		return nil, 0, NewAuthenticationError(0, fmt.Errorf("parsing auth url: %w", err))
	}
	q := u.Query()
	q.Set("grant_type", grantAccountCredentials)
	q.Set("account_id", s.creds.AccountID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, 0, NewAuthenticationError(0, fmt.Errorf("creating token request: %w", err))
	}
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// url.Error 会带上含 account_id 的完整 URL
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, 0, NewAuthenticationError(0, fmt.Errorf("requesting token: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodyBytes))
	if err != nil {
		return nil, 0, NewAuthenticationError(resp.StatusCode, fmt.Errorf("reading token response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp tokenErrorResponse
		_ = json.Unmarshal(body, &errResp)
		detail := errResp.Reason
		if detail == "" {
			detail = errResp.Error
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return nil, 0, NewAuthenticationError(resp.StatusCode, fmt.Errorf("token endpoint returned HTTP %d: %s", resp.StatusCode, detail))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, 0, NewAuthenticationError(resp.StatusCode, fmt.Errorf("parsing token response: %w", err))
	}
	if tr.AccessToken == "" {
		return nil, 0, NewAuthenticationError(resp.StatusCode, fmt.Errorf("no access_token in token response"))
	}
	if tr.ExpiresIn <= 0 {
		return nil, 0, NewAuthenticationError(resp.StatusCode, fmt.Errorf("invalid expires_in %d in token response", tr.ExpiresIn))
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	// expires_in is a lifetime in seconds, not an absolute timestamp.
	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	return &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tokenType,
		Expiry:      s.now().Add(lifetime),
	}, lifetime, nil
}
