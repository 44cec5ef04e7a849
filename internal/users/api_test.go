package users_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfinder/devfinder/internal/config"
	"github.com/devfinder/devfinder/internal/users"
)

func newUsersAPI(t *testing.T) (*mux.Router, *config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.Path = filepath.Join(t.TempDir(), "config.yaml")

	router := mux.NewRouter()
	users.NewAPIHandler(cfg).RegisterRoutes(router.PathPrefix("/api/v1/users").Subrouter())

	return router, cfg
}

func do(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestUserCRUD(t *testing.T) {
	t.Parallel()

	router, cfg := newUsersAPI(t)

	// Create
	w := do(t, router, http.MethodPost, "/api/v1/users", users.UserRequest{
		Email:    "admin@example.com",
		Password: "s3cret",
		Role:     "admin",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created users.UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "admin", created.Role)
	assert.NotEmpty(t, created.Permissions)

	// The hash is persisted, never the plaintext
	stored, ok := cfg.FindUser("admin@example.com")
	require.True(t, ok)
	assert.NotEqual(t, "s3cret", stored.Password)

	match, err := users.VerifyPassword("s3cret", stored.Password)
	require.NoError(t, err)
	assert.True(t, match)

	// Duplicate email
	w = do(t, router, http.MethodPost, "/api/v1/users", users.UserRequest{
		Email:    "admin@example.com",
		Password: "other",
		Role:     "user",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// List
	w = do(t, router, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Users []users.UserResponse `json:"users"`
		Count int                  `json:"count"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	// Get
	w = do(t, router, http.MethodGet, "/api/v1/users/admin@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/users/nobody@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Update the role, keep the password
	w = do(t, router, http.MethodPut, "/api/v1/users/admin@example.com", users.UserRequest{
		Email: "admin@example.com",
		Role:  "user",
	})
	require.Equal(t, http.StatusOK, w.Code)

	updated, ok := cfg.FindUser("admin@example.com")
	require.True(t, ok)
	assert.Equal(t, "user", updated.Role)
	assert.Equal(t, stored.Password, updated.Password)

	// Delete
	w = do(t, router, http.MethodDelete, "/api/v1/users/admin@example.com", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, cfg.HasUsers())

	w = do(t, router, http.MethodDelete, "/api/v1/users/admin@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserUpdateRename(t *testing.T) {
	t.Parallel()

	router, cfg := newUsersAPI(t)

	for _, email := range []string{"one@example.com", "two@example.com"} {
		w := do(t, router, http.MethodPost, "/api/v1/users", users.UserRequest{
			Email:    email,
			Password: "s3cret",
			Role:     "user",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	// Renaming onto an existing email conflicts
	w := do(t, router, http.MethodPut, "/api/v1/users/one@example.com", users.UserRequest{
		Email: "two@example.com",
		Role:  "user",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Renaming to a free email works
	w = do(t, router, http.MethodPut, "/api/v1/users/one@example.com", users.UserRequest{
		Email: "three@example.com",
		Role:  "user",
	})
	require.Equal(t, http.StatusOK, w.Code)

	_, ok := cfg.FindUser("three@example.com")
	assert.True(t, ok)
	_, ok = cfg.FindUser("one@example.com")
	assert.False(t, ok)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	router, cfg := newUsersAPI(t)

	w := do(t, router, http.MethodPost, "/api/v1/users", users.UserRequest{
		Email:    "admin@example.com",
		Password: "oldpass",
		Role:     "admin",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Too short
	w = do(t, router, http.MethodPost, "/api/v1/users/admin@example.com/change-password",
		map[string]string{"password": "tiny"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown user
	w = do(t, router, http.MethodPost, "/api/v1/users/nobody@example.com/change-password",
		map[string]string{"password": "newpass"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/users/admin@example.com/change-password",
		map[string]string{"password": "newpass"})
	require.Equal(t, http.StatusNoContent, w.Code)

	stored, ok := cfg.FindUser("admin@example.com")
	require.True(t, ok)

	match, err := users.VerifyPassword("newpass", stored.Password)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestRolesEndpoints(t *testing.T) {
	t.Parallel()

	router, _ := newUsersAPI(t)

	w := do(t, router, http.MethodGet, "/api/v1/users/roles", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var roles struct {
		Roles []map[string]any `json:"roles"`
		Count int              `json:"count"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roles))
	assert.Equal(t, 2, roles.Count)

	w = do(t, router, http.MethodGet, "/api/v1/users/roles/admin/permissions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var perms struct {
		Role       string                      `json:"role"`
		Categories map[string][]map[string]any `json:"categories"`
		Count      int                         `json:"count"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &perms))
	assert.Equal(t, "admin", perms.Role)
	assert.Positive(t, perms.Count)
	assert.Contains(t, perms.Categories, "Devices")
	assert.Contains(t, perms.Categories, "Discovery")
	assert.Contains(t, perms.Categories, "Users")
}
