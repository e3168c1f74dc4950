package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/portico-labs/portico/internal/shared"
	"github.com/portico-labs/portico/internal/token"
)

type mockRepo struct {
	users map[string]*User
	roles map[int64][]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[string]*User), roles: make(map[int64][]string)}
}

func (m *mockRepo) addUser(t *testing.T, id int64, username, password string, roleNames ...string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	m.users[username] = &User{ID: id, Username: username, PasswordHash: string(hash)}
	m.roles[id] = roleNames
}

func (m *mockRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, ok := m.users[username]
	return ok, nil
}

func (m *mockRepo) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	return m.roles[userID], nil
}

var _ Repository = (*mockRepo)(nil)

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	return NewService(repo, token.NewService("test-secret", time.Hour)), repo
}

func TestAuthenticate(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(t, 1, "alice", "correct horse", "user")
	ctx := context.Background()

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Authenticate(ctx, "alice", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "mallory", "whatever")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})
}

func TestLoginIssuesTokenWithRoleSet(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(t, 1, "alice", "pw123456", "user", "special_access")
	ctx := context.Background()

	resp, err := svc.Login(ctx, "alice", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Greater(t, resp.ExpiresIn, int64(0))

	identity, err := svc.AuthorizeRequest(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
	assert.ElementsMatch(t, []string{"user", "special_access"}, identity.Roles)
}

func TestAuthorizeRequestRejectsDeletedUser(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addUser(t, 1, "alice", "pw123456", "user")
	ctx := context.Background()

	resp, err := svc.Login(ctx, "alice", "pw123456")
	require.NoError(t, err)

	delete(repo.users, "alice")

	_, err = svc.AuthorizeRequest(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestAuthorizeRequestRejectsExpiredToken(t *testing.T) {
	repo := newMockRepo()
	repo.addUser(t, 1, "alice", "pw123456", "user")
	tokens := token.NewService("test-secret", time.Hour)
	svc := NewService(repo, tokens)

	raw, _, err := tokens.IssueWithTTL("alice", []string{"user"}, -time.Second)
	require.NoError(t, err)

	_, err = svc.AuthorizeRequest(context.Background(), raw)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestRequireAdmin(t *testing.T) {
	assert.ErrorIs(t, RequireAdmin(shared.Identity{Username: "bob", Roles: []string{"user"}}), shared.ErrForbidden)
	assert.ErrorIs(t, RequireAdmin(shared.Identity{Username: "ghost"}), shared.ErrForbidden)
	assert.NoError(t, RequireAdmin(shared.Identity{Username: "root", Roles: []string{"admin"}}))
	// Exact-string membership, no hierarchy.
	assert.ErrorIs(t, RequireAdmin(shared.Identity{Username: "x", Roles: []string{"administrator", "ADMIN"}}), shared.ErrForbidden)
}
