package adminhttp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/devfinder/devfinder/internal/auth"
)

var (
	errAuthRequired     = errors.New("authentication required")
	errPermissionDenied = errors.New("permission denied")
)

// requireAPIAccess gates the versioned API behind a role check once
// accounts exist. Before the first user is created the dashboard runs
// open so it can bootstrap itself.
func (s *Server) requireAPIAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authService.HasUsers() {
			next.ServeHTTP(w, r)

			return
		}

		claims, err := s.authService.Authenticate(r)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, errAuthRequired)

			return
		}

		if !auth.GetRole(claims.Role).HasPermission(apiPermission(r)) {
			jsonError(w, http.StatusForbidden, errPermissionDenied)

			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// apiPermission maps a versioned API request to the permission it needs.
func apiPermission(r *http.Request) auth.Permission {
	path := r.URL.Path
	write := r.Method != http.MethodGet && r.Method != http.MethodHead

	switch {
	case strings.HasSuffix(path, "/protect"), strings.HasSuffix(path, "/unprotect"):
		return auth.PermissionProtectDevices
	case strings.HasPrefix(path, "/api/v1/devices"):
		if write {
			return auth.PermissionManageDevices
		}

		return auth.PermissionViewDevices
	case strings.HasPrefix(path, "/api/v1/scan"):
		return auth.PermissionRunScans
	case strings.HasPrefix(path, "/api/v1/history"):
		return auth.PermissionViewHistory
	case strings.HasPrefix(path, "/api/v1/stats"):
		return auth.PermissionViewStats
	case strings.HasPrefix(path, "/api/v1/overview"):
		return auth.PermissionViewOverview
	case strings.HasPrefix(path, "/api/v1/config"):
		return auth.PermissionViewConfig
	case strings.HasPrefix(path, "/api/v1/info"):
		return auth.PermissionViewInfo
	case strings.HasPrefix(path, "/api/v1/version"):
		return auth.PermissionViewUpdates
	default:
		return auth.PermissionViewSystem
	}
}

// ScanRateLimitMiddleware throttles the scan endpoints. Scans shell out
// to system tools, so a burst of dashboard refreshes must not queue up
// a pile of subprocesses. Other routes pass through untouched.
func ScanRateLimitMiddleware(requestsPerSecond, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isScanPath(r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = fmt.Fprintf(w, `{"error":"rate limit exceeded","message":"too many scan requests"}`)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isScanPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/scan") ||
		strings.HasPrefix(path, "/api/devices/scan") ||
		strings.HasPrefix(path, "/api/devices/wifi") ||
		strings.HasPrefix(path, "/api/devices/bluetooth") ||
		strings.HasPrefix(path, "/api/devices/camera")
}
