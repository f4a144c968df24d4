package zoom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, fz *fakeZoom, clock *fakeClock) *Client {
	t.Helper()
	policy := fastPolicy()
	c, err := NewClient(Config{
		Credentials: fz.credentials(),
		SDK:         SDKCredentials{Key: "sdk-key", Secret: "sdk-secret"},
		RetryPolicy: &policy,
		Clock:       clock.Now,
	})
	require.NoError(t, err)
	return c
}

func TestClient_CreateMeeting(t *testing.T) {
	fz := newFakeZoom(t)
	clock := newFakeClock()

	var (
		gotPath string
		gotAuth string
		gotBody map[string]interface{}
	)
	fz.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":85746065432,"topic":"Weekly sync","uuid":"abc==","join_url":"https://zoom.us/j/85746065432"}`))
	}

	c := newTestClient(t, fz, clock)
	m, err := c.CreateMeeting(context.Background(), "  Weekly sync ")
	require.NoError(t, err)

	assert.Equal(t, &Meeting{ID: "85746065432", Topic: "Weekly sync"}, m)
	assert.Equal(t, "POST /v2/users/me/meetings", gotPath)
	assert.Equal(t, "Bearer tok-1", gotAuth)

	assert.Equal(t, "Weekly sync", gotBody["topic"])
	assert.EqualValues(t, 2, gotBody["type"])
	assert.EqualValues(t, 60, gotBody["duration"])
	assert.Equal(t, "Asia/Bangkok", gotBody["timezone"])
	assert.Equal(t, "2024-03-01T09:30:00Z", gotBody["start_time"])

	settings, ok := gotBody["settings"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, settings["host_video"])
	assert.Equal(t, false, settings["participant_video"])
	assert.Equal(t, true, settings["join_before_host"])
	assert.Equal(t, true, settings["mute_upon_entry"])
	assert.Equal(t, false, settings["watermark"])
	assert.EqualValues(t, 2, settings["approval_type"])
	assert.Equal(t, "both", settings["audio"])
	assert.Equal(t, "none", settings["auto_recording"])
	assert.Equal(t, false, settings["enforce_login"])

	assert.True(t, c.Ready())
}

func TestClient_CreateMeetingReusesToken(t *testing.T) {
	fz := newFakeZoom(t)
	fz.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"1","topic":"t"}`))
	}
	c := newTestClient(t, fz, newFakeClock())

	for i := 0; i < 3; i++ {
		_, err := c.CreateMeeting(context.Background(), "t")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), fz.tokenCalls.Load())
	assert.Equal(t, int32(3), fz.apiCalls.Load())
}

func TestClient_CreateMeetingValidatesTopic(t *testing.T) {
	fz := newFakeZoom(t)
	c := newTestClient(t, fz, newFakeClock())

	for _, topic := range []string{"", "   ", strings.Repeat("x", 201)} {
		_, err := c.CreateMeeting(context.Background(), topic)
		require.Error(t, err)
		assert.True(t, IsCode(err, CodeInvalidRequest))
	}
	assert.Equal(t, int32(0), fz.tokenCalls.Load())
	assert.Equal(t, int32(0), fz.apiCalls.Load())
}

func TestClient_CreateMeetingInvalidResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing id", body: `{"topic":"t"}`},
		{name: "missing topic", body: `{"id":1}`},
		{name: "fractional id", body: `{"id":1.5,"topic":"t"}`},
		{name: "not json", body: `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fz := newFakeZoom(t)
			fz.apiHandler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tt.body))
			}
			c := newTestClient(t, fz, newFakeClock())

			_, err := c.CreateMeeting(context.Background(), "t")
			require.Error(t, err)
			assert.True(t, IsCode(err, CodeUpstreamResponseInvalid), "got %v", err)
		})
	}
}

func TestClient_CreateMeetingAuthFailure(t *testing.T) {
	fz := newFakeZoom(t)
	fz.tokenStatus.Store(http.StatusUnauthorized)
	c := newTestClient(t, fz, newFakeClock())

	_, err := c.CreateMeeting(context.Background(), "t")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeAuthenticationFailed))
	assert.Equal(t, int32(0), fz.apiCalls.Load())
	assert.False(t, c.Ready())
}

func TestClient_CreateMeetingUpstreamExhausted(t *testing.T) {
	fz := newFakeZoom(t)
	fz.apiHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}
	c := newTestClient(t, fz, newFakeClock())

	_, err := c.CreateMeeting(context.Background(), "t")
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUpstreamUnavailable))
	assert.Equal(t, int32(3), fz.apiCalls.Load())
}

func TestClient_GenerateSignature(t *testing.T) {
	fz := newFakeZoom(t)
	c := newTestClient(t, fz, newFakeClock())

	sig, err := c.GenerateSignature(SignatureRequest{MeetingNumber: 123, Role: RoleHost})
	require.NoError(t, err)
	assert.Len(t, strings.Split(sig, "."), 3)
	assert.Equal(t, int32(0), fz.tokenCalls.Load(), "signing needs no token")

	_, err = c.GenerateSignature(SignatureRequest{MeetingNumber: 123, Role: 7})
	assert.True(t, IsCode(err, CodeSignatureInputInvalid))
}

func TestNewClient_Validation(t *testing.T) {
	valid := Credentials{
		AccountID:    "a",
		ClientID:     "c",
		ClientSecret: "s",
		AuthURL:      "https://zoom.us/oauth/token",
		BaseURL:      "https://api.zoom.us/v2",
	}
	sdk := SDKCredentials{Key: "k", Secret: "s"}

	tests := []struct {
		name    string
		cfg     Config
		wantMsg string
	}{
		{
			name:    "missing account id",
			cfg:     Config{Credentials: func() Credentials { c := valid; c.AccountID = ""; return c }(), SDK: sdk},
			wantMsg: "account id is required",
		},
		{
			name:    "relative base url",
			cfg:     Config{Credentials: func() Credentials { c := valid; c.BaseURL = "/v2"; return c }(), SDK: sdk},
			wantMsg: "is not an absolute URL",
		},
		{
			name:    "missing sdk secret",
			cfg:     Config{Credentials: valid, SDK: SDKCredentials{Key: "k"}},
			wantMsg: "sdk key and sdk secret are required",
		},
		{
			name:    "bad meeting defaults",
			cfg:     Config{Credentials: valid, SDK: sdk, MeetingDefaults: &MeetingDefaults{Type: 2, Duration: 0}},
			wantMsg: "invalid meeting defaults",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			require.Error(t, err)
			assert.True(t, IsCode(err, CodeConfigurationInvalid))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	c, err := NewClient(Config{Credentials: valid, SDK: sdk})
	require.NoError(t, err)
	assert.False(t, c.Ready())
}
