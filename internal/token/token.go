// Package token issues and validates the signed bearer tokens presented by
// portal callers. Tokens are ephemeral: minted at login, expired by their
// embedded timestamp and never revoked.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/portico-labs/portico/internal/shared"
)

// ErrInvalid is returned for every structural, signature or expiry failure.
// Callers must not learn why decoding failed, only that authentication is
// refused.
var ErrInvalid = errors.New("token: invalid")

const issuerName = "portico"

// Claims is the wire form of a portal token. Role names travel as a proper
// JSON array so they may contain any character.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a single shared HS256 secret
// configured at process start. No key rotation.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService constructs a Service. ttl is the lifetime applied by Issue.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Issue encodes the username and its role names into a signed token using the
// configured lifetime. Returns the compact token and its absolute expiry.
func (s *Service) Issue(username string, roleNames []string) (string, time.Time, error) {
	return s.IssueWithTTL(username, roleNames, s.ttl)
}

// IssueWithTTL is Issue with an explicit lifetime. A non-positive ttl yields
// an already expired token.
func (s *Service) IssueWithTTL(username string, roleNames []string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		Roles: append([]string(nil), roleNames...),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuerName,
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Validate verifies signature and expiry and recovers the embedded identity.
// Validation is entirely local: no storage round-trip, the role claim is
// authoritative for the token's lifetime.
func (s *Service) Validate(raw string) (shared.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return shared.Identity{}, ErrInvalid
	}
	if claims.Subject == "" {
		return shared.Identity{}, ErrInvalid
	}
	return shared.Identity{Username: claims.Subject, Roles: claims.Roles}, nil
}
