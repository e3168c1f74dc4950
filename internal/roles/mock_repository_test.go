package roles

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/portico-labs/portico/internal/shared"
)

// mockRepository is an in-memory Repository for service-level tests.
type mockRepository struct {
	mu     sync.Mutex
	nextID int64
	roles  map[int64]Role
	owners map[Owner]bool
	links  map[Owner]map[int64]struct{}

	// failNextCreate simulates losing a creation race: the next CreateRole
	// returns a conflict after persisting the role on behalf of the "other"
	// caller.
	failNextCreate bool

	addCalls    int
	removeCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:  make(map[int64]Role),
		owners: make(map[Owner]bool),
		links:  make(map[Owner]map[int64]struct{}),
	}
}

func (m *mockRepository) addOwner(owner Owner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[owner] = true
	if m.links[owner] == nil {
		m.links[owner] = make(map[int64]struct{})
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	return out, nil
}

func (m *mockRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getByNameLocked(name)
}

func (m *mockRepository) getByNameLocked(name string) (Role, error) {
	for _, role := range m.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func (m *mockRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextCreate {
		m.failNextCreate = false
		m.createLocked(name, description)
		return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrConflict)
	}
	if _, err := m.getByNameLocked(name); err == nil {
		return Role{}, fmt.Errorf("role %q: %w", name, shared.ErrConflict)
	}
	return m.createLocked(name, description), nil
}

func (m *mockRepository) createLocked(name, description string) Role {
	m.nextID++
	role := Role{
		ID:          m.nextID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.roles[role.ID] = role
	return role
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	role.Name = name
	role.Description = description
	role.UpdatedAt = time.Now()
	m.roles[id] = role
	return role, nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	for _, linkSet := range m.links {
		delete(linkSet, id)
	}
	return nil
}

func (m *mockRepository) LockOwner(ctx context.Context, owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.owners[owner] {
		return shared.ErrNotFound
	}
	return nil
}

func (m *mockRepository) CurrentRoleNames(ctx context.Context, owner Owner) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for roleID := range m.links[owner] {
		names = append(names, m.roles[roleID].Name)
	}
	return names, nil
}

func (m *mockRepository) AddLinks(ctx context.Context, owner Owner, roleIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addCalls++
	if m.links[owner] == nil {
		m.links[owner] = make(map[int64]struct{})
	}
	for _, roleID := range roleIDs {
		m.links[owner][roleID] = struct{}{}
	}
	return nil
}

func (m *mockRepository) RemoveLinksByName(ctx context.Context, owner Owner, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeCalls++
	for _, name := range names {
		for roleID := range m.links[owner] {
			if m.roles[roleID].Name == name {
				delete(m.links[owner], roleID)
			}
		}
	}
	return nil
}

var _ Repository = (*mockRepository)(nil)
