package users

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/portico-labs/portico/internal/shared"
)

type mockRepo struct {
	nextID int64
	users  map[int64]User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[int64]User)}
}

// canonicalRoles mirrors the repository read contract: role sets come back
// deduplicated and name-sorted, on create as on every later read.
func canonicalRoles(names []string) []string {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *mockRepo) ListUsers(ctx context.Context, offset, limit int) ([]User, error) {
	var list []User
	for id := int64(1); id <= m.nextID; id++ {
		if user, ok := m.users[id]; ok {
			list = append(list, user)
		}
	}
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

func (m *mockRepo) GetUser(ctx context.Context, id int64) (User, error) {
	user, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepo) CreateUser(ctx context.Context, username, passwordHash string, roleNames []string) (User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return User{}, fmt.Errorf("username %q: %w", username, shared.ErrConflict)
		}
	}
	m.nextID++
	user := User{
		ID:           m.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        canonicalRoles(roleNames),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *mockRepo) UpdateUser(ctx context.Context, id int64, username, passwordHash string, roleNames []string, syncRoles bool) (User, error) {
	user, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	user.Username = username
	user.PasswordHash = passwordHash
	if syncRoles {
		user.Roles = canonicalRoles(roleNames)
	}
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return user, nil
}

func (m *mockRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

var _ RepositoryPort = (*mockRepo)(nil)

func TestCreateUser(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	t.Run("hashes password and assigns roles", func(t *testing.T) {
		user, err := svc.CreateUser(ctx, CreateUserRequest{
			Username: "alice",
			Password: "pw123456",
			Roles:    []string{"user"},
		})
		require.NoError(t, err)
		assert.NotEqual(t, "pw123456", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123456")))
		assert.Equal(t, []string{"user"}, user.Roles)
	})

	t.Run("create response carries the effective role set", func(t *testing.T) {
		user, err := svc.CreateUser(ctx, CreateUserRequest{
			Username: "carol",
			Password: "pw123456",
			Roles:    []string{"user", "user", "admin"},
		})
		require.NoError(t, err)
		// Same deduplicated, sorted form a subsequent read returns.
		assert.Equal(t, []string{"admin", "user"}, user.Roles)

		read, err := svc.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, read.Roles, user.Roles)
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "alice", Password: "pw123456"})
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("short username rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "ab", Password: "pw123456"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("short password rejected", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "bob", Password: "short"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestUpdateUserMerge(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "bob",
		Password: "pw123456",
		Roles:    []string{"user", "admin"},
	})
	require.NoError(t, err)

	t.Run("nil fields leave attributes unchanged", func(t *testing.T) {
		updated, err := svc.UpdateUser(ctx, created.ID, UpdateUserRequest{})
		require.NoError(t, err)
		assert.Equal(t, "bob", updated.Username)
		assert.ElementsMatch(t, []string{"user", "admin"}, updated.Roles)
	})

	t.Run("username only", func(t *testing.T) {
		name := "robert"
		updated, err := svc.UpdateUser(ctx, created.ID, UpdateUserRequest{Username: &name})
		require.NoError(t, err)
		assert.Equal(t, "robert", updated.Username)
		assert.ElementsMatch(t, []string{"user", "admin"}, updated.Roles)
	})

	t.Run("password only rehashes", func(t *testing.T) {
		before := repo.users[created.ID].PasswordHash
		pw := "newpass123"
		updated, err := svc.UpdateUser(ctx, created.ID, UpdateUserRequest{Password: &pw})
		require.NoError(t, err)
		assert.NotEqual(t, before, updated.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(pw)))
	})

	t.Run("role set replaced when present", func(t *testing.T) {
		updated, err := svc.UpdateUser(ctx, created.ID, UpdateUserRequest{Roles: []string{"admin"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, updated.Roles)
	})

	t.Run("empty role set clears links", func(t *testing.T) {
		updated, err := svc.UpdateUser(ctx, created.ID, UpdateUserRequest{Roles: []string{}})
		require.NoError(t, err)
		assert.Empty(t, updated.Roles)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.UpdateUser(ctx, 999, UpdateUserRequest{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestListUsersPagination(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		_, err := svc.CreateUser(ctx, CreateUserRequest{
			Username: fmt.Sprintf("user%03d", i),
			Password: "pw123456",
		})
		require.NoError(t, err)
	}

	t.Run("limit capped", func(t *testing.T) {
		list, err := svc.ListUsers(ctx, 0, 500)
		require.NoError(t, err)
		assert.Len(t, list, 100)
	})

	t.Run("offset applies", func(t *testing.T) {
		list, err := svc.ListUsers(ctx, 140, 50)
		require.NoError(t, err)
		assert.Len(t, list, 10)
	})
}

func TestDeleteUser(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{Username: "gone", Password: "pw123456"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, created.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, created.ID), shared.ErrNotFound)
}
