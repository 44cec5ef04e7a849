//nolint:gochecknoglobals // prometheus metrics and global state
package metrics

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	ScansTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "device_scans_total",
			Help: "Device scans performed by method and outcome (Counter). outcome=success|error.",
		},
		[]string{"service", "method", "outcome"},
	)
	ScanDevicesFound = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "device_scan_devices_found_total",
			Help: "Devices discovered by scans, by method (Counter).",
		},
		[]string{"service", "method"},
	)
	ScanDuration = promauto.NewHistogramVec(prom.HistogramOpts{
		Name:    "device_scan_duration_seconds",
		Help:    "Scan duration in seconds by method (Histogram).",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	}, []string{"service", "method"})

	DevicesGauge = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "devices_registered",
			Help: "Currently registered devices by status (Gauge).",
		},
		[]string{"service", "status"},
	)
	FavoritesGauge = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "devices_favorite",
			Help: "Currently favorited devices (Gauge).",
		},
		[]string{"service"},
	)
	ProtectedGauge = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "devices_protected",
			Help: "Currently password-protected devices (Gauge).",
		},
		[]string{"service"},
	)

	AdminRequestsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Dashboard HTTP requests handled (Counter). Labels: service, method, route, status.",
		},
		[]string{"service", "method", "route", "status"},
	)

	ReadyGauge = promauto.NewGaugeVec(
		prom.GaugeOpts{
			Name: "service_ready",
			Help: "Service readiness: 1=ready, 0=not ready (Gauge).",
		},
		[]string{"service"},
	)

	ScanCacheHitsTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "device_scan_cache_hits_total",
			Help: "Scan requests served from the result cache.",
		},
		[]string{"service"},
	)
	ScanCacheMissesTotal = promauto.NewCounterVec(
		prom.CounterOpts{
			Name: "device_scan_cache_misses_total",
			Help: "Scan requests that ran a fresh scan.",
		},
		[]string{"service"},
	)
)

var readyFlag int32 //nolint:gochecknoglobals // service ready flag

var serviceName atomic.Value //nolint:gochecknoglobals // service name // string

// SetService sets the service label value (default: devfinder).
func SetService(name string) { serviceName.Store(name) }

func Service() string {
	if v := serviceName.Load(); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	return "devfinder"
}

// RegisterCollectors registers default Go and process collectors.
// Should be called once during program startup (e.g., in cmd).
func RegisterCollectors() {
	registerDefault(collectors.NewGoCollector())
	registerDefault(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

func registerDefault(c prom.Collector) {
	if err := prom.Register(c); err != nil {
		var are prom.AlreadyRegisteredError
		if errors.As(err, &are) {
			return
		}
		// best-effort: ignore unexpected errors to avoid panics in init
	}
}

// RecordScan records one scan attempt with its outcome and duration.
func RecordScan(method string, found int, duration time.Duration, err error) {
	s := Service()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	ScansTotal.WithLabelValues(s, method, outcome).Inc()
	ScanDuration.WithLabelValues(s, method).Observe(duration.Seconds())

	if err == nil && found > 0 {
		ScanDevicesFound.WithLabelValues(s, method).Add(float64(found))
	}
}

// RecordScanCacheHit counts a scan served from cache.
func RecordScanCacheHit() {
	ScanCacheHitsTotal.WithLabelValues(Service()).Inc()

	i := int(atomic.LoadInt64(&scanRingIndex) % scanRingWindow)
	atomic.AddUint64(&scanRingHits[i], 1)
}

// RecordScanCacheMiss counts a scan that hit the hardware.
func RecordScanCacheMiss() {
	ScanCacheMissesTotal.WithLabelValues(Service()).Inc()

	i := int(atomic.LoadInt64(&scanRingIndex) % scanRingWindow)
	atomic.AddUint64(&scanRingMisses[i], 1)
}

// SetDeviceCounts updates the registry gauges.
func SetDeviceCounts(online, offline, favorites, protected int) {
	s := Service()
	DevicesGauge.WithLabelValues(s, "online").Set(float64(online))
	DevicesGauge.WithLabelValues(s, "offline").Set(float64(offline))
	FavoritesGauge.WithLabelValues(s).Set(float64(favorites))
	ProtectedGauge.WithLabelValues(s).Set(float64(protected))
}

// RecordHTTP increments dashboard HTTP requests with OTEL-style labels.
func RecordHTTP(method, route string, status int) {
	AdminRequestsTotal.WithLabelValues(Service(), method, route, strconv.Itoa(status)).Inc()
}

// SetReady sets readiness and updates the gauge.
func SetReady(v bool) {
	if v {
		atomic.StoreInt32(&readyFlag, 1)
		ReadyGauge.WithLabelValues(Service()).Set(1)
	} else {
		atomic.StoreInt32(&readyFlag, 0)
		ReadyGauge.WithLabelValues(Service()).Set(0)
	}
}

// IsReady returns current readiness flag.
func IsReady() bool { return atomic.LoadInt32(&readyFlag) == 1 }

// Simple in-memory per-second ring for recent scan rate (per process).
const scanRingWindow = 60

var (
	scanRingHits   [scanRingWindow]uint64
	scanRingMisses [scanRingWindow]uint64
	scanRingIndex  int64 // atomic
	scanTickSet    int32
)

// StartScanRateTicker starts a background ticker that advances the ring each second.
func StartScanRateTicker() {
	if !atomic.CompareAndSwapInt32(&scanTickSet, 0, 1) {
		return
	}

	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()

		for range t.C {
			i := int(atomic.AddInt64(&scanRingIndex, 1) % scanRingWindow)
			atomic.StoreUint64(&scanRingHits[i], 0)
			atomic.StoreUint64(&scanRingMisses[i], 0)
		}
	}()
}

func snapshotScanRing() (uint64, uint64) {
	var hits, misses uint64
	for i := range scanRingWindow {
		hits += atomic.LoadUint64(&scanRingHits[i])
		misses += atomic.LoadUint64(&scanRingMisses[i])
	}

	return hits, misses
}

// Stats represents a lightweight analytics snapshot for the dashboard UI.
type Stats struct {
	ScansTotal          float64 `json:"scans_total"`
	ScanErrorsTotal     float64 `json:"scan_errors_total"`
	DevicesFoundTotal   float64 `json:"devices_found_total"`
	ScanAvgSeconds      float64 `json:"scan_avg_seconds"`
	ServiceReady        float64 `json:"service_ready"`
	ScansPerMinute      float64 `json:"scans_per_minute"`
	FreshScansPerMinute float64 `json:"fresh_scans_per_minute"`
	ScanCacheHitRate    float64 `json:"scan_cache_hit_rate"`
	HTTPRequestsTotal   float64 `json:"http_requests_total"`
	RegisteredDevices   float64 `json:"registered_devices"`
	FavoriteDevices     float64 `json:"favorite_devices"`
	ProtectedDevices    float64 `json:"protected_devices"`
}

// GatherStats collects basic stats from the default registry for a given service label.
//
//nolint:gocognit,cyclop,funlen // metric gathering walks many families
func GatherStats(service string) (Stats, error) {
	mfs, err := prom.DefaultGatherer.Gather()
	if err != nil {
		return Stats{}, err
	}

	var (
		s                      Stats
		scanSum, scanCount     float64
		cacheHits, cacheMisses float64
	)

	withService := func(m *dto.Metric) bool {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "service" && lp.GetValue() == service {
				return true
			}
		}

		return false
	}

	labelValue := func(m *dto.Metric, name string) string {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name {
				return lp.GetValue()
			}
		}

		return ""
	}

	for _, mf := range mfs {
		switch mf.GetName() {
		case "device_scans_total":
			for _, m := range mf.GetMetric() {
				if !withService(m) {
					continue
				}

				s.ScansTotal += m.GetCounter().GetValue()

				if labelValue(m, "outcome") == "error" {
					s.ScanErrorsTotal += m.GetCounter().GetValue()
				}
			}
		case "device_scan_devices_found_total":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.DevicesFoundTotal += m.GetCounter().GetValue()
				}
			}
		case "device_scan_duration_seconds":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					h := m.GetHistogram()
					scanSum += h.GetSampleSum()
					scanCount += float64(h.GetSampleCount())
				}
			}
		case "device_scan_cache_hits_total":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					cacheHits += m.GetCounter().GetValue()
				}
			}
		case "device_scan_cache_misses_total":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					cacheMisses += m.GetCounter().GetValue()
				}
			}
		case "http_server_requests_total":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.HTTPRequestsTotal += m.GetCounter().GetValue()
				}
			}
		case "devices_registered":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.RegisteredDevices += m.GetGauge().GetValue()
				}
			}
		case "devices_favorite":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.FavoriteDevices = m.GetGauge().GetValue()
				}
			}
		case "devices_protected":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.ProtectedDevices = m.GetGauge().GetValue()
				}
			}
		case "service_ready":
			for _, m := range mf.GetMetric() {
				if withService(m) {
					s.ServiceReady = m.GetGauge().GetValue()
				}
			}
		}
	}

	if scanCount > 0 {
		s.ScanAvgSeconds = scanSum / scanCount
	}

	hits, misses := snapshotScanRing()
	s.ScansPerMinute = float64(hits + misses)
	s.FreshScansPerMinute = float64(misses)

	if cacheHits+cacheMisses > 0 {
		s.ScanCacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return s, nil
}
