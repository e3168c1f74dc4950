package roles

import (
	"context"
	"errors"

	"github.com/portico-labs/portico/internal/shared"
)

// Registry resolves a set of role names to persisted Role records, creating
// any that do not yet exist. Resolution is idempotent: uniqueness on the role
// name guarantees repeated calls never produce duplicate rows.
type Registry struct {
	repo Repository
}

// NewRegistry constructs a Registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// ResolveOrCreate looks up each requested name and creates a role carrying
// only that name when absent, persisting immediately before moving to the
// next name. Two concurrent callers racing on the same unseen name can hit
// the uniqueness constraint; the loser retries the lookup once before
// surfacing a conflict.
func (g *Registry) ResolveOrCreate(ctx context.Context, names []string) ([]Role, error) {
	resolved := make([]Role, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		role, err := g.resolveOne(ctx, name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, role)
	}
	return resolved, nil
}

func (g *Registry) resolveOne(ctx context.Context, name string) (Role, error) {
	role, err := g.repo.GetRoleByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Role{}, err
	}

	role, err = g.repo.CreateRole(ctx, name, "")
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, shared.ErrConflict) {
		return Role{}, err
	}

	// Lost a creation race: another caller persisted the role between our
	// lookup and insert. One retry resolves it.
	role, retryErr := g.repo.GetRoleByName(ctx, name)
	if errors.Is(retryErr, shared.ErrNotFound) {
		return Role{}, err
	}
	return role, retryErr
}
