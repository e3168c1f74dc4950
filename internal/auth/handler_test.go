package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portico-labs/portico/internal/token"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) (http.Handler, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	svc := NewService(repo, token.NewService("test-secret", time.Hour))
	handler := NewHandler(testLogger(), svc)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, repo
}

func TestHandleLogin(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.addUser(t, 1, "alice", "pw123456", "user")

	t.Run("success", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader(`{"username":"alice","password":"pw123456"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		var resp TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("bad credentials", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader(`{"username":"alice","password":"wrong"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user same response as bad password", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token",
			strings.NewReader(`{"username":"mallory","password":"pw123456"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotContains(t, w.Body.String(), "user")
	})

	t.Run("missing fields", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleMe(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.addUser(t, 1, "alice", "pw123456", "user", "special_access")

	login := httptest.NewRequest(http.MethodPost, "/auth/token",
		strings.NewReader(`{"username":"alice","password":"pw123456"}`))
	loginRec := httptest.NewRecorder()
	router.ServeHTTP(loginRec, login)
	require.Equal(t, http.StatusOK, loginRec.Code)

	var tok TokenResponse
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &tok))

	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	var me meResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)
	assert.ElementsMatch(t, []string{"user", "special_access"}, me.Roles)
}
