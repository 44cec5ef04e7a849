package auth

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"
)

// APIHandler serves the login and session endpoints. They are the only
// API routes that stay open once users are configured.
type APIHandler struct {
	svc *Service
}

// NewAPIHandler creates the auth API handler.
func NewAPIHandler(svc *Service) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes mounts the auth endpoints under /api/v1/auth.
func (h *APIHandler) RegisterRoutes(root *mux.Router) {
	api := root.PathPrefix("/api/v1/auth").Subrouter()

	api.HandleFunc("/status", h.Status).Methods("GET")
	api.HandleFunc("/login", h.Login).Methods("POST")
	api.HandleFunc("/first-user", h.FirstUser).Methods("POST")
	api.HandleFunc("/refresh", h.Refresh).Methods("POST")
}

// Status tells the UI whether to show login or the bootstrap form.
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.GetAuthStatus()
	if err != nil {
		deny(w, r, http.StatusInternalServerError, "auth status unavailable")

		return
	}

	render.JSON(w, r, status)
}

// Login exchanges credentials for a token pair.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		deny(w, r, http.StatusBadRequest, "invalid JSON")

		return
	}

	if req.Email == "" || req.Password == "" {
		deny(w, r, http.StatusBadRequest, ErrEmailPasswordRequired.Error())

		return
	}

	resp, err := h.svc.Login(&req)
	if err != nil {
		deny(w, r, http.StatusUnauthorized, ErrInvalidCredentials.Error())

		return
	}

	render.JSON(w, r, resp)
}

// FirstUser bootstraps the initial admin account.
func (h *APIHandler) FirstUser(w http.ResponseWriter, r *http.Request) {
	var req FirstUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		deny(w, r, http.StatusBadRequest, "invalid JSON")

		return
	}

	resp, err := h.svc.CreateFirstUser(&req)
	if err != nil {
		deny(w, r, http.StatusBadRequest, err.Error())

		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Refresh rotates a refresh token pair.
func (h *APIHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.RefreshToken == "" {
		deny(w, r, http.StatusBadRequest, "refresh token is required")

		return
	}

	resp, err := h.svc.Refresh(&req)
	if err != nil {
		deny(w, r, http.StatusUnauthorized, ErrInvalidToken.Error())

		return
	}

	render.JSON(w, r, resp)
}
