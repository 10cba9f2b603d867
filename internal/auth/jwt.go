// Package auth provides the credential primitives for the HopOn API: signed
// JWTs, bcrypt password hashing, guest tokens, the Google OAuth provider and
// the bearer-token identity middleware.
//
// TOKEN KINDS:
// Every token carries a "type" claim. A refresh token presented where an
// access token is expected is rejected, and vice versa:
//
//	access      → sent as "Authorization: Bearer <jwt>", 15 minutes by default
//	refresh     → stored in the HttpOnly refresh_token cookie, 7 days by default
//	oauth_state → the signed "state" parameter of one Google login attempt
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","type":"access","iat":…,"exp":…,"iss":"hopon-api"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind tags what a token may be used for.
type Kind string

const (
	KindAccess     Kind = "access"
	KindRefresh    Kind = "refresh"
	KindOAuthState Kind = "oauth_state"
)

const (
	DefaultAccessTTL  = 900 * time.Second
	DefaultRefreshTTL = 604800 * time.Second
	defaultStateTTL   = 10 * time.Minute

	issuer = "hopon-api"
)

// ErrInvalidToken is returned by Decode for any token that must not be
// trusted: bad signature, expired, wrong issuer or wrong kind. Callers treat
// it as "no identity" rather than as a failure.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens and the
// lifetime configured for each token kind.
type TokenService struct {
	secret []byte
	ttls   map[Kind]time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithTTL overrides the lifetime of one token kind.
func WithTTL(kind Kind, d time.Duration) TokenOption {
	return func(s *TokenService) {
		if d > 0 {
			s.ttls[kind] = d
		}
	}
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	s := &TokenService{
		secret: []byte(secret),
		ttls: map[Kind]time.Duration{
			KindAccess:     DefaultAccessTTL,
			KindRefresh:    DefaultRefreshTTL,
			KindOAuthState: defaultStateTTL,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL reports the configured lifetime for kind. The refresh cookie's
// Max-Age is derived from it.
func (s *TokenService) TTL(kind Kind) time.Duration {
	return s.ttls[kind]
}

// claims is the JWT payload. "sub" holds the internal user ID; the state
// fields are only set on oauth_state tokens.
type claims struct {
	jwt.RegisteredClaims
	Kind     Kind   `json:"type"`
	ReturnTo string `json:"return_to,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

// Issue signs a token of the given kind for subject using the configured
// lifetime of that kind.
func (s *TokenService) Issue(subject string, kind Kind) (string, error) {
	return s.IssueWithTTL(subject, kind, s.ttls[kind])
}

// IssueWithTTL signs a token with an explicit lifetime.
func (s *TokenService) IssueWithTTL(subject string, kind Kind, ttl time.Duration) (string, error) {
	return s.sign(claims{Kind: kind}, subject, ttl)
}

func (s *TokenService) sign(c claims, subject string, ttl time.Duration) (string, error) {
	now := s.now()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Decode verifies tokenStr and returns its subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired and carries an expiry at all
//   - Issuer matches "hopon-api"
//   - Algorithm is HS256 (prevents "alg: none" confusion attacks)
//
// On top of that the "type" claim must equal expected.
func (s *TokenService) Decode(tokenStr string, expected Kind) (string, error) {
	c, err := s.parse(tokenStr, expected)
	if err != nil {
		return "", err
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return c.Subject, nil
}

func (s *TokenService) parse(tokenStr string, expected Kind) (*claims, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.Kind != expected {
		return nil, fmt.Errorf("%w: kind %q, want %q", ErrInvalidToken, c.Kind, expected)
	}
	return c, nil
}
