package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"review-service/internal/auth"
)

const issuer = "review-service"

var ErrInvalidToken = errors.New("invalid token")

// Claims is what an access token asserts. The role is informational; the
// resolver re-reads it from the user record.
type Claims struct {
	UserID    string
	Role      auth.Role
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type accessClaims struct {
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 access tokens.
type Signer struct {
	key []byte
}

func NewSigner(secret string) (*Signer, error) {
	if len(secret) < 32 {
		return nil, errors.New("token: signing secret must be at least 32 bytes")
	}
	return &Signer{key: []byte(secret)}, nil
}

func (s *Signer) Sign(c Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role:      string(c.Role),
		SessionID: c.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	})
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

func (s *Signer) Parse(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || c.Subject == "" || c.SessionID == "" {
		return Claims{}, ErrInvalidToken
	}

	out := Claims{
		UserID:    c.Subject,
		Role:      auth.Role(c.Role),
		SessionID: c.SessionID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out, nil
}
