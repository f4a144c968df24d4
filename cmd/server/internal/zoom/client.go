package zoom

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/houzhh15/zoomrelay/pkg/logger"
	"github.com/houzhh15/zoomrelay/pkg/metrics"
)

const (
	createMeetingPath = "users/me/meetings"

	// maxTopicLength is the create-meeting API limit for topic.
	maxTopicLength = 200

	startTimeLayout = "2006-01-02T15:04:05Z"
)

// Config holds everything NewClient needs. Zero values select the defaults.
type Config struct {
	Credentials Credentials
	SDK         SDKCredentials

	// MeetingDefaults overrides DefaultMeetingDefaults when non-nil.
	MeetingDefaults *MeetingDefaults
	MaxConcurrent   int
	TokenLeeway     time.Duration
	RequestTimeout  time.Duration
	RetryPolicy     *RetryPolicy
	HTTPClient      *http.Client
	Clock           func() time.Time
}

// Client is the relay's facade over the Zoom API.
type Client struct {
	session   *TokenSession
	transport *Transport
	signer    *Signer
	defaults  MeetingDefaults
	now       func() time.Time
	log       *slog.Logger
}

// NewClient validates cfg and wires session, transport and signer.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}
	if cfg.SDK.Key == "" || cfg.SDK.Secret == "" {
		return nil, NewConfigurationError("sdk key and sdk secret are required")
	}

	defaults := DefaultMeetingDefaults()
	if cfg.MeetingDefaults != nil {
		defaults = *cfg.MeetingDefaults
	}
	if err := defaults.Validate(); err != nil {
		return nil, NewError(CodeConfigurationInvalid, "invalid meeting defaults", err)
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	sessionOpts := []SessionOption{WithSessionClock(now)}
	transportOpts := []TransportOption{WithLimiter(NewConcurrencyLimiter(cfg.MaxConcurrent))}
	if cfg.TokenLeeway > 0 {
		sessionOpts = append(sessionOpts, WithLeeway(cfg.TokenLeeway))
	}
	if cfg.HTTPClient != nil {
		sessionOpts = append(sessionOpts, WithSessionHTTPClient(cfg.HTTPClient))
		transportOpts = append(transportOpts, WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.RetryPolicy != nil {
		transportOpts = append(transportOpts, WithRetryPolicy(*cfg.RetryPolicy))
	}
	if cfg.RequestTimeout > 0 {
		transportOpts = append(transportOpts, WithRequestTimeout(cfg.RequestTimeout))
	}

	session := NewTokenSession(cfg.Credentials, sessionOpts...)
	return &Client{
		session:   session,
		transport: NewTransport(cfg.Credentials.BaseURL, session, transportOpts...),
		signer:    NewSigner(cfg.SDK, WithSignerClock(now)),
		defaults:  defaults,
		now:       now,
		log:       logger.L().With("component", "zoom-client"),
	}, nil
}

// CreateMeeting schedules a meeting starting now for the authenticated user
// and returns its id and topic. Transport errors are returned unchanged.
func (c *Client) CreateMeeting(ctx context.Context, topic string) (*Meeting, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, NewInvalidRequestError("topic is required")
	}
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return nil, NewInvalidRequestError(fmt.Sprintf("topic must be at most %d characters", maxTopicLength))
	}

	payload := meetingPayload{
		Topic:     topic,
		Type:      c.defaults.Type,
		StartTime: c.now().UTC().Format(startTimeLayout),
		Duration:  c.defaults.Duration,
		Timezone:  c.defaults.Timezone,
		Settings:  c.defaults.Settings,
	}

	var resp meetingResponse
	if err := c.transport.Do(ctx, http.MethodPost, createMeetingPath, payload, &resp); err != nil {
		return nil, err
	}

	if resp.ID == "" {
		return nil, NewError(CodeUpstreamResponseInvalid, "meeting response has no id", nil)
	}
	if resp.Topic == nil {
		return nil, NewError(CodeUpstreamResponseInvalid, "meeting response has no topic", nil)
	}

	c.log.Info("meeting created", "meeting_id", string(resp.ID))
	return &Meeting{ID: string(resp.ID), Topic: *resp.Topic}, nil
}

// GenerateSignature returns a Meeting SDK join signature for req.
func (c *Client) GenerateSignature(req SignatureRequest) (string, error) {
	sig, err := c.signer.Sign(req)
	if err != nil {
		return "", err
	}
	metrics.RecordSignatureIssued(strconv.Itoa(req.Role))
	return sig, nil
}

// Ready reports whether an access token is cached. It never contacts Zoom.
func (c *Client) Ready() bool {
	return c.session.HasValidToken()
}
