// Package zoom is the client for the Zoom REST API used by the relay.
//
// It covers three concerns:
//   - TokenSession obtains and caches a Server-to-Server OAuth access token
//   - Transport issues authenticated, retried requests against the API base URL
//   - Signer builds Meeting SDK join signatures (HS256 JWT) from the SDK key/secret
//
// Client ties them together for the operations the HTTP layer exposes.
package zoom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Credentials holds the Server-to-Server OAuth app settings. Immutable after construction.
type Credentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	// AuthURL is the token endpoint (e.g., "https://zoom.us/oauth/token").
	AuthURL string
	// BaseURL is the REST API root (e.g., "https://api.zoom.us/v2").
	BaseURL string
}

// Validate returns a configuration error naming every missing or malformed field.
func (c Credentials) Validate() error {
	var problems []string
	required := []struct {
		name, value string
	}{
		{"account id", c.AccountID},
		{"client id", c.ClientID},
		{"client secret", c.ClientSecret},
		{"auth url", c.AuthURL},
		{"base url", c.BaseURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.name+" is required")
		}
	}
	for _, u := range []struct{ name, value string }{{"auth url", c.AuthURL}, {"base url", c.BaseURL}} {
		if u.value == "" {
			continue
		}
		if parsed, err := url.Parse(u.value); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			problems = append(problems, fmt.Sprintf("%s %q is not an absolute URL", u.name, u.value))
		}
	}
	if len(problems) > 0 {
		return NewConfigurationError(strings.Join(problems, "; "))
	}
	return nil
}

// SDKCredentials holds the Meeting SDK app key and secret used for join signatures.
type SDKCredentials struct {
	Key    string
	Secret string
}

// MeetingSettings mirrors the "settings" object of the create-meeting payload.
type MeetingSettings struct {
	HostVideo        bool   `json:"host_video" yaml:"host_video"`
	ParticipantVideo bool   `json:"participant_video" yaml:"participant_video"`
	JoinBeforeHost   bool   `json:"join_before_host" yaml:"join_before_host"`
	MuteUponEntry    bool   `json:"mute_upon_entry" yaml:"mute_upon_entry"`
	Watermark        bool   `json:"watermark" yaml:"watermark"`
	ApprovalType     int    `json:"approval_type" yaml:"approval_type"`
	Audio            string `json:"audio" yaml:"audio"`
	AutoRecording    string `json:"auto_recording" yaml:"auto_recording"`
	EnforceLogin     bool   `json:"enforce_login" yaml:"enforce_login"`
}

// MeetingDefaults are the fixed parts of every meeting the relay creates.
type MeetingDefaults struct {
	Type     int             `yaml:"type"`
	Duration int             `yaml:"duration"`
	Timezone string          `yaml:"timezone"`
	Settings MeetingSettings `yaml:"settings"`
}

// Meeting type and approval values from the Zoom API reference.
const (
	MeetingTypeScheduled   = 2
	ApprovalNoRegistration = 2
)

// DefaultMeetingDefaults returns the built-in meeting template.
func DefaultMeetingDefaults() MeetingDefaults {
	return MeetingDefaults{
		Type:     MeetingTypeScheduled,
		Duration: 60,
		Timezone: "Asia/Bangkok",
		Settings: MeetingSettings{
			HostVideo:        false,
			ParticipantVideo: false,
			JoinBeforeHost:   true,
			MuteUponEntry:    true,
			Watermark:        false,
			ApprovalType:     ApprovalNoRegistration,
			Audio:            "both",
			AutoRecording:    "none",
			EnforceLogin:     false,
		},
	}
}

// meetingPayload is the body of POST users/me/meetings.
type meetingPayload struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone"`
	Settings  MeetingSettings `json:"settings"`
}

// Meeting is the projection of the provider's meeting object returned to callers.
type Meeting struct {
	ID    string `json:"meetId"`
	Topic string `json:"topic"`
}

// meetingResponse is the subset of the provider response the relay validates.
type meetingResponse struct {
	ID    MeetingID `json:"id"`
	Topic *string   `json:"topic"`
}

// MeetingID accepts the provider's numeric id (or a string id) and keeps it as decimal text.
type MeetingID string

// UnmarshalJSON implements json.Unmarshaler.
func (m *MeetingID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MeetingID(s)
		return nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("meeting id must be a number or string: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("meeting id %s is not an integer", n)
	}
	*m = MeetingID(n.String())
	return nil
}

// SignatureRequest carries the inputs of a Meeting SDK join signature.
type SignatureRequest struct {
	MeetingNumber int64
	// Role is 0 for participants and 1 for hosts.
	Role int
	// ExpirationSeconds is the signature lifetime; 0 selects DefaultSignatureTTL.
	ExpirationSeconds int
}

// DefaultSignatureTTL is the signature lifetime when the caller does not pick one.
const DefaultSignatureTTL = 2 * time.Hour

// tokenResponse is the body returned by the OAuth token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// apiErrorResponse is the error body Zoom returns on 4xx/5xx.
type apiErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
