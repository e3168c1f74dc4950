package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/portico-labs/portico/internal/roles"
	"github.com/portico-labs/portico/internal/shared"
)

const maxPageSize = 100

// Service handles user management business logic.
type Service struct {
	repo   RepositoryPort
	syncer *roles.Syncer
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, syncer *roles.Syncer) *Service {
	return &Service{repo: repo, syncer: syncer}
}

// ListUsers returns accounts with pagination. The page size is capped.
func (s *Service) ListUsers(ctx context.Context, offset, limit int) ([]User, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	return s.repo.ListUsers(ctx, offset, limit)
}

// GetUser fetches a single account by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser validates input, hashes the password and persists the account
// with its initial role links as one unit.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest) (User, error) {
	if err := validateUsername(req.Username); err != nil {
		return User{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, req.Username, string(hash), req.Roles)
}

// UpdateUser applies a fixed field-by-field merge of the optional update
// attributes onto the stored account, then persists the result. Role links
// are reconciled only when the request carries a role set.
func (s *Service) UpdateUser(ctx context.Context, id int64, req UpdateUserRequest) (User, error) {
	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	username := current.Username
	if req.Username != nil {
		if err := validateUsername(*req.Username); err != nil {
			return User{}, err
		}
		username = *req.Username
	}

	passwordHash := current.PasswordHash
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return User{}, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		passwordHash = string(hash)
	}

	return s.repo.UpdateUser(ctx, id, username, passwordHash, req.Roles, req.Roles != nil)
}

// DeleteUser removes an account and its role links.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

// SyncRoles reconciles the account's role links to exactly the given set.
func (s *Service) SyncRoles(ctx context.Context, userID int64, roleNames []string) error {
	return s.syncer.Sync(ctx, roles.Owner{Kind: roles.OwnerUser, ID: userID}, roleNames)
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return fmt.Errorf("username must be 3-50 characters: %w", shared.ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", shared.ErrValidation)
	}
	return nil
}
