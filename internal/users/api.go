package users

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"

	"github.com/devfinder/devfinder/internal/config"
)

const minPasswordLength = 6

var (
	ErrInvalidJSON          = errors.New("invalid JSON")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrPasswordTooShort     = errors.New("password must be at least 6 characters")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToSaveConfig   = errors.New("failed to save config")
)

// APIHandler serves the user management endpoints. Users live in the
// config file; every mutation is written back through Save.
type APIHandler struct {
	cfg *config.Config
	mu  sync.Mutex // serializes read-modify-write cycles on the user list
}

// NewAPIHandler creates the user API handler.
func NewAPIHandler(cfg *config.Config) *APIHandler {
	return &APIHandler{cfg: cfg}
}

// RegisterRoutes mounts the user routes. Fixed paths come before the
// /{email} wildcards.
func (h *APIHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/roles", h.ListRoles).Methods("GET")
	api.HandleFunc("/roles/{role}/permissions", h.RolePermissions).Methods("GET")

	api.HandleFunc("", h.List).Methods("GET")
	api.HandleFunc("", h.Create).Methods("POST")
	api.HandleFunc("/{email}", h.Get).Methods("GET")
	api.HandleFunc("/{email}", h.Update).Methods("PUT")
	api.HandleFunc("/{email}", h.Delete).Methods("DELETE")
	api.HandleFunc("/{email}/change-password", h.ChangePassword).Methods("POST")
}

func userError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func toResponse(u config.UserConfig) *UserResponse {
	return &UserResponse{
		Email:       u.Email,
		Role:        u.Role,
		Permissions: GetRolePermissions(u.Role),
	}
}

func indexOf(list []config.UserConfig, email string) int {
	for i := range list {
		if list[i].Email == email {
			return i
		}
	}

	return -1
}

// List returns all users without their password hashes.
func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.cfg.UsersSnapshot()

	out := make([]*UserResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toResponse(u))
	}

	render.JSON(w, r, map[string]any{
		"users": out,
		"count": len(out),
	})
}

// Get returns a single user by email.
func (h *APIHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := h.cfg.FindUser(mux.Vars(r)["email"])
	if !ok {
		userError(w, r, http.StatusNotFound, ErrUserNotFound)

		return
	}

	render.JSON(w, r, toResponse(u))
}

// Create adds a user and persists the config.
func (h *APIHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		userError(w, r, http.StatusBadRequest, ErrInvalidJSON)

		return
	}

	if err := ValidateUserRequest(&req); err != nil {
		userError(w, r, http.StatusBadRequest, err)

		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.cfg.FindUser(req.Email); exists {
		userError(w, r, http.StatusConflict, ErrUserAlreadyExists)

		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		userError(w, r, http.StatusInternalServerError, ErrFailedToHashPassword)

		return
	}

	u := config.UserConfig{Email: req.Email, Password: hash, Role: req.Role}
	h.cfg.AppendUser(u)

	if err := h.cfg.Save(); err != nil {
		userError(w, r, http.StatusInternalServerError, ErrFailedToSaveConfig)

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toResponse(u))
}

// Update changes a user's email, role and optionally password.
func (h *APIHandler) Update(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	var req UserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		userError(w, r, http.StatusBadRequest, ErrInvalidJSON)

		return
	}

	if err := ValidateUserUpdate(&req); err != nil {
		userError(w, r, http.StatusBadRequest, err)

		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.cfg.UsersSnapshot()

	idx := indexOf(list, email)
	if idx < 0 {
		userError(w, r, http.StatusNotFound, ErrUserNotFound)

		return
	}

	if req.Email != email && indexOf(list, req.Email) >= 0 {
		userError(w, r, http.StatusConflict, ErrUserAlreadyExists)

		return
	}

	u := list[idx]
	u.Email = req.Email
	u.Role = req.Role

	if req.Password != "" {
		hash, err := HashPassword(req.Password)
		if err != nil {
			userError(w, r, http.StatusInternalServerError, ErrFailedToHashPassword)

			return
		}

		u.Password = hash
	}

	list[idx] = u
	h.cfg.ReplaceUsers(list)

	if err := h.cfg.Save(); err != nil {
		userError(w, r, http.StatusInternalServerError, ErrFailedToSaveConfig)

		return
	}

	render.JSON(w, r, toResponse(u))
}

// Delete removes a user and persists the config.
func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.cfg.UsersSnapshot()

	idx := indexOf(list, email)
	if idx < 0 {
		userError(w, r, http.StatusNotFound, ErrUserNotFound)

		return
	}

	h.cfg.ReplaceUsers(slices.Delete(list, idx, idx+1))

	if err := h.cfg.Save(); err != nil {
		userError(w, r, http.StatusInternalServerError, ErrFailedToSaveConfig)

		return
	}

	render.NoContent(w, r)
}

// ChangePassword rehashes and stores a user's password.
func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	var req struct {
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		userError(w, r, http.StatusBadRequest, ErrInvalidJSON)

		return
	}

	if strings.TrimSpace(req.Password) == "" {
		userError(w, r, http.StatusBadRequest, ErrPasswordCannotBeEmpty)

		return
	}

	if len(req.Password) < minPasswordLength {
		userError(w, r, http.StatusBadRequest, ErrPasswordTooShort)

		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.cfg.UsersSnapshot()

	idx := indexOf(list, email)
	if idx < 0 {
		userError(w, r, http.StatusNotFound, ErrUserNotFound)

		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		userError(w, r, http.StatusInternalServerError, ErrFailedToHashPassword)

		return
	}

	list[idx].Password = hash
	h.cfg.ReplaceUsers(list)

	if err := h.cfg.Save(); err != nil {
		userError(w, r, http.StatusInternalServerError, ErrFailedToSaveConfig)

		return
	}

	render.NoContent(w, r)
}

// ListRoles returns the assignable roles with their permission counts.
func (h *APIHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles := []map[string]any{
		{
			"name":              "admin",
			"description":       "Full access to devices, discovery and user management",
			"permissions_count": len(getAdminPermissions()),
		},
		{
			"name":              "user",
			"description":       "Device and discovery access without user management",
			"permissions_count": len(getUserPermissions()),
		},
	}

	render.JSON(w, r, map[string]any{
		"roles": roles,
		"count": len(roles),
	})
}

// RolePermissions returns a role's permissions grouped by category.
func (h *APIHandler) RolePermissions(w http.ResponseWriter, r *http.Request) {
	role := mux.Vars(r)["role"]
	permissions := GetRolePermissions(role)

	categories := make(map[string][]Permission)
	for _, perm := range permissions {
		categories[perm.Category] = append(categories[perm.Category], perm)
	}

	render.JSON(w, r, map[string]any{
		"role":        role,
		"permissions": permissions,
		"categories":  categories,
		"count":       len(permissions),
	})
}
