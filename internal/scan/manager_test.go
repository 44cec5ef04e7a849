package scan_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/devfinder/devfinder/internal/errors"
	"github.com/devfinder/devfinder/internal/metrics"
	"github.com/devfinder/devfinder/internal/scan"
)

var errFakeScan = errors.New("fake scan failure")

// fakeStrategy is a configurable strategy for manager tests.
type fakeStrategy struct {
	name      string
	method    scan.Method
	priority  int
	available bool
	results   []*scan.Result
	err       error
	calls     atomic.Int64
}

func (f *fakeStrategy) Name() string                       { return f.name }
func (f *fakeStrategy) Method() scan.Method                { return f.method }
func (f *fakeStrategy) Priority() int                      { return f.priority }
func (f *fakeStrategy) IsAvailable(_ context.Context) bool { return f.available }

func (f *fakeStrategy) Discover(_ context.Context) ([]*scan.Result, error) {
	f.calls.Add(1)

	return f.results, f.err
}

func TestManagerScan(t *testing.T) {
	t.Parallel()

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(&fakeStrategy{
		name:      "fake-wifi",
		method:    scan.MethodWifi,
		priority:  100,
		available: true,
		results: []*scan.Result{
			{Name: "HomeNet", Address: "AA:BB:CC:DD:EE:FF", Method: scan.MethodWifi},
		},
	})

	results, err := manager.Scan(context.Background(), scan.MethodWifi)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "HomeNet", results[0].Name)
}

func TestManagerScanUnknownMethod(t *testing.T) {
	t.Parallel()

	manager := scan.NewManager(time.Minute)

	_, err := manager.Scan(context.Background(), scan.MethodCamera)
	assert.ErrorIs(t, err, customerrors.ErrUnknownScanMethod)
}

func TestManagerScanUnavailable(t *testing.T) {
	t.Parallel()

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(&fakeStrategy{
		name:   "offline-wifi",
		method: scan.MethodWifi,
	})

	_, err := manager.Scan(context.Background(), scan.MethodWifi)
	assert.ErrorIs(t, err, customerrors.ErrScanUnavailable)
}

func TestManagerScanPriorityOrder(t *testing.T) {
	t.Parallel()

	low := &fakeStrategy{
		name:      "backup",
		method:    scan.MethodWifi,
		priority:  10,
		available: true,
		results:   []*scan.Result{{Name: "backup result"}},
	}
	high := &fakeStrategy{
		name:      "primary",
		method:    scan.MethodWifi,
		priority:  100,
		available: true,
		results:   []*scan.Result{{Name: "primary result"}},
	}

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(low)
	manager.AddStrategy(high)

	results, err := manager.Scan(context.Background(), scan.MethodWifi)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "primary result", results[0].Name)

	// The backup never ran because the primary found devices
	assert.Equal(t, int64(1), high.calls.Load())
	assert.Equal(t, int64(0), low.calls.Load())
}

func TestManagerScanFallsBackOnFailure(t *testing.T) {
	t.Parallel()

	failing := &fakeStrategy{
		name:      "broken",
		method:    scan.MethodBluetooth,
		priority:  100,
		available: true,
		err:       errFakeScan,
	}
	backup := &fakeStrategy{
		name:      "simulated",
		method:    scan.MethodBluetooth,
		priority:  10,
		available: true,
		results:   []*scan.Result{{Name: "Speaker", Address: "AA:BB:CC:DD:EE:FF"}},
	}

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(failing)
	manager.AddStrategy(backup)

	results, err := manager.Scan(context.Background(), scan.MethodBluetooth)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Speaker", results[0].Name)
}

func TestManagerScanCaching(t *testing.T) {
	t.Parallel()

	strategy := &fakeStrategy{
		name:      "counted",
		method:    scan.MethodWifi,
		priority:  100,
		available: true,
		results:   []*scan.Result{{Name: "net", Address: "AA:BB:CC:DD:EE:FF"}},
	}

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(strategy)

	for range 3 {
		_, err := manager.Scan(context.Background(), scan.MethodWifi)
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), strategy.calls.Load())

	manager.Invalidate(scan.MethodWifi)

	_, err := manager.Scan(context.Background(), scan.MethodWifi)
	require.NoError(t, err)
	assert.Equal(t, int64(2), strategy.calls.Load())
}

// Not parallel: the metrics service label is process-global.
func TestManagerScanRecordsCacheMetrics(t *testing.T) {
	const service = "scan-manager-cache-metrics"

	previous := metrics.Service()
	metrics.SetService(service)
	t.Cleanup(func() { metrics.SetService(previous) })

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(&fakeStrategy{
		name:      "counted",
		method:    scan.MethodWifi,
		priority:  100,
		available: true,
		results:   []*scan.Result{{Name: "net", Address: "AA:BB:CC:DD:EE:FF"}},
	})

	// One fresh scan, then two served from cache
	for range 3 {
		_, err := manager.Scan(context.Background(), scan.MethodWifi)
		require.NoError(t, err)
	}

	stats, err := metrics.GatherStats(service)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, stats.ScanCacheHitRate, 0.001)
}

func TestManagerScanAll(t *testing.T) {
	t.Parallel()

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(&fakeStrategy{
		name:      "wifi",
		method:    scan.MethodWifi,
		priority:  100,
		available: true,
		results:   []*scan.Result{{Name: "net", Address: "AA:BB:CC:DD:EE:01"}},
	})
	manager.AddStrategy(&fakeStrategy{
		name:      "bt",
		method:    scan.MethodBluetooth,
		priority:  100,
		available: true,
		results:   []*scan.Result{{Name: "speaker", Address: "AA:BB:CC:DD:EE:02"}},
	})
	// An unavailable method is skipped, not fatal
	manager.AddStrategy(&fakeStrategy{
		name:   "cam",
		method: scan.MethodCamera,
	})

	all, err := manager.ScanAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, all, 2)
	assert.Len(t, all[scan.MethodWifi], 1)
	assert.Len(t, all[scan.MethodBluetooth], 1)
	assert.NotContains(t, all, scan.MethodCamera)
}

func TestManagerPairedBluetoothSimulated(t *testing.T) {
	t.Parallel()

	manager := scan.NewManager(time.Minute)
	manager.AddStrategy(scan.NewSimulatedStrategy(scan.MethodBluetooth, 7))

	results, err := manager.PairedBluetooth(context.Background())
	require.NoError(t, err)

	for _, r := range results {
		assert.True(t, r.Paired)
	}
}

func TestManagerPairedBluetoothUnavailable(t *testing.T) {
	t.Parallel()

	manager := scan.NewManager(time.Minute)

	_, err := manager.PairedBluetooth(context.Background())
	assert.ErrorIs(t, err, customerrors.ErrScanUnavailable)
}
