package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/portico-labs/portico/internal/shared"
)

// Service orchestrates role management operations.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 50 {
		return Role{}, fmt.Errorf("role name must be 2-50 characters: %w", shared.ErrValidation)
	}
	return s.repo.CreateRole(ctx, name, description)
}

// UpdateRole renames a role or changes its description.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 50 {
		return Role{}, fmt.Errorf("role name must be 2-50 characters: %w", shared.ErrValidation)
	}
	return s.repo.UpdateRole(ctx, id, name, description)
}

// DeleteRole removes a role together with every link row referencing it.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}
