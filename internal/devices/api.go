package devices

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"

	customerrors "github.com/devfinder/devfinder/internal/errors"
	"github.com/devfinder/devfinder/internal/history"
	"github.com/devfinder/devfinder/internal/metrics"
)

const hostnameLookupTimeout = 2 * time.Second

// HostnameResolver resolves an IP address to a hostname. Implementations
// return "" when the address has no name.
type HostnameResolver interface {
	LookupPTR(ctx context.Context, ip string) string
}

// APIHandler handles HTTP requests for device management.
type APIHandler struct {
	registry *Registry
	guard    *Guard
	feed     *history.Feed
	resolver HostnameResolver
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(registry *Registry, guard *Guard, feed *history.Feed) *APIHandler {
	return &APIHandler{
		registry: registry,
		guard:    guard,
		feed:     feed,
	}
}

// SetResolver enables reverse-DNS hostname backfill for devices with an IP.
func (h *APIHandler) SetResolver(resolver HostnameResolver) {
	h.resolver = resolver
}

// RegisterRoutes registers all device API routes.
func (h *APIHandler) RegisterRoutes(api *mux.Router) {
	devicesAPI := api.PathPrefix("/devices").Subrouter()

	// Fixed paths must come before /{id} routes
	devicesAPI.HandleFunc("/sections", h.GetSections).Methods("GET")
	devicesAPI.HandleFunc("/stats", h.GetStats).Methods("GET")

	// Device management
	devicesAPI.HandleFunc("", h.GetDevices).Methods("GET")
	devicesAPI.HandleFunc("", h.AddDevice).Methods("POST")
	devicesAPI.HandleFunc("/{id}", h.GetDevice).Methods("GET")
	devicesAPI.HandleFunc("/{id}", h.UpdateDevice).Methods("PUT")
	devicesAPI.HandleFunc("/{id}", h.DeleteDevice).Methods("DELETE")

	// Device actions
	devicesAPI.HandleFunc("/{id}/favorite", h.ToggleFavorite).Methods("POST")
	devicesAPI.HandleFunc("/{id}/status", h.ToggleStatus).Methods("POST")
	devicesAPI.HandleFunc("/{id}/protect", h.ProtectDevice).Methods("POST")
	devicesAPI.HandleFunc("/{id}/unprotect", h.UnprotectDevice).Methods("POST")
}

// GetDevices returns all devices.
func (h *APIHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	devices := h.registry.List()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// GetSections returns the bucketed sidebar view, optionally filtered by
// the q query parameter. Matches carry highlight ranges for the UI.
func (h *APIHandler) GetSections(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	query := r.URL.Query().Get("q")
	sections := h.registry.Sections(query)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"sections": sections,
		"count":    sections.Total(),
		"query":    query,
	})
}

// GetStats returns device statistics.
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, h.registry.Stats())
}

// GetDevice returns a specific device by ID.
func (h *APIHandler) GetDevice(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	deviceID := mux.Vars(r)["id"]

	device, exists := h.registry.Get(deviceID)
	if !exists {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error": "Device not found",
			"id":    deviceID,
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, device)
}

// AddDevice adds a new device with a randomly assigned status.
func (h *APIHandler) AddDevice(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	var req struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		IP      string `json:"ip"`
		Address string `json:"address"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid request body: " + err.Error(),
		})

		return
	}

	device, err := h.registry.Add(req.Name, DeviceType(req.Type), req.IP, req.Address)
	if err != nil {
		render.Status(r, deviceErrorStatus(err))
		render.JSON(w, r, map[string]string{
			"error": "Failed to add device: " + err.Error(),
		})

		return
	}

	h.resolveHostname(r.Context(), device)

	h.feed.Record(history.KindDeviceAdded, "device added: "+device.DisplayName(), history.WithDevice(device.ID))
	h.updateGauges()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, device)
}

// UpdateDevice updates an existing device. A protected device requires
// its password in the request body, same as delete.
func (h *APIHandler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	deviceID := mux.Vars(r)["id"]

	var req struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		IP       string `json:"ip"`
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid request body: " + err.Error(),
		})

		return
	}

	if h.guard.IsProtected(deviceID) {
		if err := h.guard.Verify(deviceID, req.Password); err != nil {
			render.Status(r, guardErrorStatus(err))
			render.JSON(w, r, map[string]string{
				"error": "Failed to update device: " + err.Error(),
				"id":    deviceID,
			})

			return
		}
	}

	device, err := h.registry.Update(deviceID, req.Name, DeviceType(req.Type), req.IP)
	if err != nil {
		render.Status(r, deviceErrorStatus(err))
		render.JSON(w, r, map[string]string{
			"error": "Failed to update device: " + err.Error(),
			"id":    deviceID,
		})

		return
	}

	h.resolveHostname(r.Context(), device)

	h.feed.Record(history.KindDeviceUpdated, "device updated: "+device.DisplayName(), history.WithDevice(device.ID))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, device)
}

// DeleteDevice deletes a device. A protected device requires its
// password in the request body.
func (h *APIHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	deviceID := mux.Vars(r)["id"]

	if h.guard.IsProtected(deviceID) {
		var req struct {
			Password string `json:"password"`
		}

		// An empty body means no password was supplied.
		_ = render.DecodeJSON(r.Body, &req)

		if err := h.guard.Verify(deviceID, req.Password); err != nil {
			render.Status(r, guardErrorStatus(err))
			render.JSON(w, r, map[string]string{
				"error": "Failed to delete device: " + err.Error(),
				"id":    deviceID,
			})

			return
		}
	}

	device, _ := h.registry.Get(deviceID)

	if err := h.registry.Delete(deviceID); err != nil {
		render.Status(r, deviceErrorStatus(err))
		render.JSON(w, r, map[string]string{
			"error": "Failed to delete device: " + err.Error(),
			"id":    deviceID,
		})

		return
	}

	h.guard.Forget(deviceID)

	if device != nil {
		h.feed.Record(history.KindDeviceDeleted, "device deleted: "+device.DisplayName(), history.WithDevice(deviceID))
	}

	h.updateGauges()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"message": "Device deleted successfully",
		"id":      deviceID,
	})
}

// ToggleFavorite flips the favorite flag on a device.
func (h *APIHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, h.registry.ToggleFavorite)
}

// ToggleStatus flips the simulated online/offline status.
func (h *APIHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	h.handleToggle(w, r, h.registry.ToggleStatus)
}

// ProtectDevice sets a password on a device.
func (h *APIHandler) ProtectDevice(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	deviceID := mux.Vars(r)["id"]

	device, exists := h.registry.Get(deviceID)
	if !exists {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{
			"error": "Device not found",
			"id":    deviceID,
		})

		return
	}

	var req struct {
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid request body: " + err.Error(),
		})

		return
	}

	if err := h.guard.Protect(deviceID, req.Password); err != nil {
		render.Status(r, deviceErrorStatus(err))
		render.JSON(w, r, map[string]string{
			"error": "Failed to protect device: " + err.Error(),
			"id":    deviceID,
		})

		return
	}

	h.registry.MarkProtected(deviceID, true)
	h.feed.Record(history.KindProtectionSet, "protection set: "+device.DisplayName(), history.WithDevice(deviceID))
	h.updateGauges()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"message": "Device protected successfully",
		"id":      deviceID,
	})
}

// UnprotectDevice removes password protection after verifying the password.
func (h *APIHandler) UnprotectDevice(w http.ResponseWriter, r *http.Request) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	deviceID := mux.Vars(r)["id"]

	var req struct {
		Password string `json:"password"`
	}

	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid request body: " + err.Error(),
		})

		return
	}

	if err := h.guard.Unprotect(deviceID, req.Password); err != nil {
		render.Status(r, deviceErrorStatus(err))
		render.JSON(w, r, map[string]string{
			"error": "Failed to unprotect device: " + err.Error(),
			"id":    deviceID,
		})

		return
	}

	h.registry.MarkProtected(deviceID, false)

	if device, ok := h.registry.Get(deviceID); ok {
		h.feed.Record(history.KindProtectionUnset, "protection removed: "+device.DisplayName(), history.WithDevice(deviceID))
	}

	h.updateGauges()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"message": "Device protection removed",
		"id":      deviceID,
	})
}

// handleToggle is a common handler for toggle endpoints.
func (h *APIHandler) handleToggle(w http.ResponseWriter, r *http.Request, toggle func(string) (*Device, error)) {
	if h.registry == nil {
		h.renderRegistryMissing(w, r)

		return
	}

	deviceID := mux.Vars(r)["id"]

	device, err := toggle(deviceID)
	if err != nil {
		render.Status(r, deviceErrorStatus(err))
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
			"id":    deviceID,
		})

		return
	}

	h.feed.Record(history.KindDeviceUpdated, "device updated: "+device.DisplayName(), history.WithDevice(device.ID))
	h.updateGauges()

	render.Status(r, http.StatusOK)
	render.JSON(w, r, device)
}

func (h *APIHandler) renderRegistryMissing(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, map[string]any{
		"error": customerrors.ErrRegistryNotInitialized.Error(),
	})
}

// updateGauges refreshes the registry metrics after a mutation.
func (h *APIHandler) updateGauges() {
	stats := h.registry.Stats()

	online, _ := stats["online_devices"].(int)
	offline, _ := stats["offline_devices"].(int)
	favorites, _ := stats["favorite_devices"].(int)
	protected, _ := stats["protected_devices"].(int)

	metrics.SetDeviceCounts(online, offline, favorites, protected)
}

// resolveHostname backfills the hostname for devices with a known IP.
// Lookups are best effort and bounded; failures leave the field empty.
func (h *APIHandler) resolveHostname(ctx context.Context, device *Device) {
	if h.resolver == nil || device == nil || device.IP == "" {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, hostnameLookupTimeout)
	defer cancel()

	if hostname := h.resolver.LookupPTR(lookupCtx, device.IP); hostname != "" {
		h.registry.SetHostname(device.ID, hostname)
		device.Hostname = hostname
	}
}

// guardErrorStatus maps password verification failures: a missing
// password reads as unauthenticated, anything else as forbidden.
func guardErrorStatus(err error) int {
	if errors.Is(err, customerrors.ErrPasswordRequired) {
		return http.StatusUnauthorized
	}

	return http.StatusForbidden
}

// deviceErrorStatus maps domain errors to HTTP status codes.
func deviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, customerrors.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, customerrors.ErrPasswordMismatch),
		errors.Is(err, customerrors.ErrDeviceNotProtected):
		return http.StatusForbidden
	case errors.Is(err, customerrors.ErrDeviceNameRequired),
		errors.Is(err, customerrors.ErrDeviceAddressExists),
		errors.Is(err, customerrors.ErrDeviceAlreadyProtected),
		errors.Is(err, customerrors.ErrPasswordRequired),
		errors.Is(err, customerrors.ErrInvalidDeviceIP),
		errors.Is(err, customerrors.ErrInvalidStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
