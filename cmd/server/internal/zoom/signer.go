package zoom

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Meeting SDK roles.
const (
	RoleParticipant = 0
	RoleHost        = 1
)

// SDKClaims is the payload of a Meeting SDK join signature.
// appKey and sdkKey both carry the SDK key; older SDK versions read appKey.
type SDKClaims struct {
	AppKey        string `json:"appKey"`
	SDKKey        string `json:"sdkKey"`
	MeetingNumber string `json:"mn"`
	Role          int    `json:"role"`
	jwt.RegisteredClaims
}

// Signer builds HS256 join signatures. It performs no I/O; output depends only
// on the request, the SDK credentials and the clock.
type Signer struct {
	creds SDKCredentials
	now   func() time.Time
}

// SignerOption customizes a Signer.
type SignerOption func(*Signer)

// WithSignerClock overrides the clock (for tests).
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) { s.now = now }
}

// NewSigner creates a Signer for the given SDK credentials.
func NewSigner(creds SDKCredentials, opts ...SignerOption) *Signer {
	s := &Signer{creds: creds, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign returns the compact JWS for req.
// exp = iat + ExpirationSeconds, or iat + DefaultSignatureTTL when ExpirationSeconds is 0.
func (s *Signer) Sign(req SignatureRequest) (string, error) {
	if err := validateSignatureRequest(req); err != nil {
		return "", err
	}
	if s.creds.Key == "" || s.creds.Secret == "" {
		return "", NewConfigurationError("sdk key and secret are required to sign")
	}

	ttl := DefaultSignatureTTL
	if req.ExpirationSeconds > 0 {
		ttl = time.Duration(req.ExpirationSeconds) * time.Second
	}
	iat := time.Unix(s.now().Unix(), 0)

	claims := SDKClaims{
		AppKey:        s.creds.Key,
		SDKKey:        s.creds.Key,
		MeetingNumber: strconv.FormatInt(req.MeetingNumber, 10),
		Role:          req.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.creds.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign sdk token: %w", err)
	}
	return signed, nil
}

func validateSignatureRequest(req SignatureRequest) error {
	if req.MeetingNumber <= 0 {
		return NewSignatureInputError("meetingNumber must be a positive integer")
	}
	if req.Role != RoleParticipant && req.Role != RoleHost {
		return NewSignatureInputError(fmt.Sprintf("role must be %d (participant) or %d (host), got %d", RoleParticipant, RoleHost, req.Role))
	}
	if req.ExpirationSeconds < 0 {
		return NewSignatureInputError("expirationSeconds must not be negative")
	}
	return nil
}
