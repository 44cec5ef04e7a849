package scan

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/gorilla/mux"

	"github.com/devfinder/devfinder/internal/devices"
	customerrors "github.com/devfinder/devfinder/internal/errors"
	"github.com/devfinder/devfinder/internal/history"
	"github.com/devfinder/devfinder/internal/metrics"
)

// APIHandler handles HTTP requests for device discovery.
type APIHandler struct {
	manager  *Manager
	registry *devices.Registry
	feed     *history.Feed
}

// NewAPIHandler creates a new scan API handler.
func NewAPIHandler(manager *Manager, registry *devices.Registry, feed *history.Feed) *APIHandler {
	return &APIHandler{
		manager:  manager,
		registry: registry,
		feed:     feed,
	}
}

// RegisterRoutes registers the versioned scan routes.
func (h *APIHandler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/scan", h.Scan).Methods("GET")
	api.HandleFunc("/scan/all", h.ScanAll).Methods("GET")
}

// RegisterCompatRoutes registers the legacy dashboard routes. Their
// wire shape is fixed: {"status":"success","devices":[...]} on success
// and {"error":"..."} on failure.
func (h *APIHandler) RegisterCompatRoutes(api *mux.Router) {
	devicesAPI := api.PathPrefix("/devices").Subrouter()

	devicesAPI.HandleFunc("/scan", h.CompatScan).Methods("GET")
	devicesAPI.HandleFunc("/wifi", h.compatMethod(MethodWifi)).Methods("GET")
	devicesAPI.HandleFunc("/bluetooth", h.compatMethod(MethodBluetooth)).Methods("GET")
	devicesAPI.HandleFunc("/bluetooth/paired", h.CompatBluetoothPaired).Methods("GET")
	devicesAPI.HandleFunc("/camera", h.compatMethod(MethodCamera)).Methods("GET")
}

// Scan runs discovery for the method given in the query parameter.
// With adopt=true, discovered devices are merged into the registry.
func (h *APIHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]any{
			"error": customerrors.ErrScannerNotInitialized.Error(),
		})

		return
	}

	method, ok := ParseMethod(r.URL.Query().Get("method"))
	if !ok {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": customerrors.ErrUnknownScanMethod.Error(),
		})

		return
	}

	results, err := h.scan(r, method)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{
			"error": "Scan failed: " + err.Error(),
		})

		return
	}

	if r.URL.Query().Get("adopt") == "true" {
		h.adopt(results)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"method":  string(method),
		"devices": results,
		"count":   len(results),
	})
}

// ScanAll fans out over every configured method.
func (h *APIHandler) ScanAll(w http.ResponseWriter, r *http.Request) {
	if h.manager == nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]any{
			"error": customerrors.ErrScannerNotInitialized.Error(),
		})

		return
	}

	started := time.Now()

	all, err := h.manager.ScanAll(r.Context())
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{
			"error": "Scan failed: " + err.Error(),
		})

		return
	}

	total := 0
	for _, results := range all {
		total += len(results)
	}

	h.feed.Record(history.KindScanFinished, "full scan finished",
		history.WithDetails(map[string]any{
			"devices_found": total,
			"duration_ms":   time.Since(started).Milliseconds(),
		}))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"results": all,
		"count":   total,
	})
}

// CompatScan serves the legacy scan endpoint.
func (h *APIHandler) CompatScan(w http.ResponseWriter, r *http.Request) {
	method, ok := ParseMethod(r.URL.Query().Get("method"))
	if !ok {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{
			"error": "Invalid scan method. Use wifi, bluetooth or camera.",
		})

		return
	}

	results, err := h.scan(r, method)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"status":  "success",
		"devices": results,
	})
}

// compatMethod builds a legacy list endpoint pinned to one method.
func (h *APIHandler) compatMethod(method Method) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := h.scan(r, method)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{
				"error": err.Error(),
			})

			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]any{
			"status":  "success",
			"devices": results,
		})
	}
}

// CompatBluetoothPaired serves the legacy paired devices endpoint.
func (h *APIHandler) CompatBluetoothPaired(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	results, err := h.manager.PairedBluetooth(r.Context())

	metrics.RecordScan(string(MethodBluetooth), len(results), time.Since(started), err)

	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{
			"error": err.Error(),
		})

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"status":  "success",
		"devices": results,
	})
}

// scan runs one method scan, recording history and metrics.
func (h *APIHandler) scan(r *http.Request, method Method) ([]*Result, error) {
	started := time.Now()

	h.feed.Record(history.KindScanStarted, "scan started", history.WithMethod(string(method)))

	results, err := h.manager.Scan(r.Context(), method)

	metrics.RecordScan(string(method), len(results), time.Since(started), err)

	if err != nil {
		h.feed.Record(history.KindScanFailed, "scan failed: "+err.Error(), history.WithMethod(string(method)))

		return nil, err
	}

	h.feed.Record(history.KindScanFinished, "scan finished", history.WithMethod(string(method)),
		history.WithDetails(map[string]any{"devices_found": len(results)}))

	if results == nil {
		results = []*Result{}
	}

	return results, nil
}

// adopt merges scan results into the registry.
func (h *APIHandler) adopt(results []*Result) {
	if h.registry == nil {
		return
	}

	for _, result := range results {
		name := result.Name
		if name == "" && result.Hostname != "" {
			name = result.Hostname
		}

		h.registry.Adopt(devices.Adoption{
			Name:     name,
			Type:     devices.DeviceType(result.Type),
			Address:  result.Address,
			IP:       result.IP,
			Hostname: result.Hostname,
			Signal:   result.Signal,
			Security: result.Security,
			Source:   string(result.Method),
		})
	}
}
