package auth_test

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

	"github.com/devfinder/devfinder/internal/auth"
	"github.com/devfinder/devfinder/internal/config"
)

func newAuthRouter(t *testing.T, svc *auth.Service) *mux.Router {
	t.Helper()

	router := mux.NewRouter()
	auth.NewAPIHandler(svc).RegisterRoutes(router)

	return router
}

func postJSON(t *testing.T, router *mux.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestAuthStatusEndpoint(t *testing.T) {
	t.Parallel()

	svc := newServiceWithUser(t, "admin@example.com", "s3cret")
	router := newAuthRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status auth.AuthStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.UsersExist)
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	svc := newServiceWithUser(t, "admin@example.com", "s3cret")
	router := newAuthRouter(t, svc)

	w := postJSON(t, router, "/api/v1/auth/login", auth.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "admin@example.com", resp.User.Email)

	// Wrong password and missing fields
	w = postJSON(t, router, "/api/v1/auth/login", auth.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, router, "/api/v1/auth/login", auth.LoginRequest{Email: "admin@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFirstUserEndpoint(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Path = filepath.Join(t.TempDir(), "config.yaml")

	svc, err := auth.NewService(cfg)
	require.NoError(t, err)

	router := newAuthRouter(t, svc)

	w := postJSON(t, router, "/api/v1/auth/first-user", auth.FirstUserRequest{
		Email:    "admin@example.com",
		Password: "s3cret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "admin", resp.User.Role)

	// Second bootstrap attempt is rejected
	w = postJSON(t, router, "/api/v1/auth/first-user", auth.FirstUserRequest{
		Email:    "second@example.com",
		Password: "pw",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()

	svc := newServiceWithUser(t, "admin@example.com", "s3cret")
	router := newAuthRouter(t, svc)

	login, err := svc.Login(&auth.LoginRequest{Email: "admin@example.com", Password: "s3cret"})
	require.NoError(t, err)

	w := postJSON(t, router, "/api/v1/auth/refresh", auth.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	var resp auth.RefreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, login.RefreshToken, resp.RefreshToken)

	// Consumed token is gone
	w = postJSON(t, router, "/api/v1/auth/refresh", auth.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Missing token
	w = postJSON(t, router, "/api/v1/auth/refresh", auth.RefreshRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
