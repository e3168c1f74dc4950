package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/portico-labs/portico/internal/shared"
	"github.com/portico-labs/portico/internal/token"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *token.Service
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *token.Service) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// TokenResponse is the result of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Authenticate validates username/password credentials. A missing user and a
// password mismatch are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrUnauthenticated
	}
	return user, nil
}

// Login verifies credentials and mints a bearer token embedding the user's
// current role-name set.
func (s *Service) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return TokenResponse{}, err
	}
	roleNames, err := s.repo.RoleNames(ctx, user.ID)
	if err != nil {
		return TokenResponse{}, err
	}
	signed, expiresAt, err := s.tokens.Issue(user.Username, roleNames)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}

// AuthorizeRequest validates a presented token and recovers the caller
// identity. The embedded role claim stays authoritative for the token's
// lifetime; storage is consulted only to confirm the user record still
// exists.
func (s *Service) AuthorizeRequest(ctx context.Context, raw string) (shared.Identity, error) {
	identity, err := s.tokens.Validate(raw)
	if err != nil {
		return shared.Identity{}, shared.ErrUnauthenticated
	}
	exists, err := s.repo.UsernameExists(ctx, identity.Username)
	if err != nil {
		return shared.Identity{}, err
	}
	if !exists {
		return shared.Identity{}, shared.ErrUnauthenticated
	}
	return identity, nil
}

// RequireAdmin permits access iff the identity's role set contains the
// literal "admin" role.
func RequireAdmin(identity shared.Identity) error {
	if !identity.HasRole(AdminRole) {
		return shared.ErrForbidden
	}
	return nil
}
