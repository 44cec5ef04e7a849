package scan

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

const (
	simulatedMinDelay = 150 * time.Millisecond
	simulatedMaxExtra = 350

	simulatedSignalFloor = 30
	simulatedSignalSpan  = 70
)

// Simulated device pools, one per method. A simulated scan returns a
// random subset of the pool so repeated scans feel live.
var (
	simulatedWifi = []Result{
		{Name: "HomeNet-5G", Security: "WPA2", Type: "wifi"},
		{Name: "HomeNet-Guest", Security: "Open", Type: "wifi"},
		{Name: "CoffeeShop WiFi", Security: "Open", Type: "wifi"},
		{Name: "Office-Secure", Security: "WPA3", Type: "wifi"},
		{Name: "PrinterDirect-8f2a", Security: "WPA2", Type: "printer", IP: "192.168.1.42"},
		{Name: "TP-Link_A4F1", Security: "WPA2", Type: "router", IP: "192.168.1.1"},
	}

	simulatedBluetooth = []Result{
		{Name: "Living Room Speaker", Type: "bluetooth"},
		{Name: "WH-1000XM5", Type: "bluetooth"},
		{Name: "Magic Keyboard", Type: "bluetooth"},
		{Name: "Fitness Tracker", Type: "sensor"},
		{Name: "Unknown device", Type: "bluetooth"},
	}

	simulatedCamera = []Result{
		{Name: "Integrated Webcam", Type: "camera"},
		{Name: "USB 2.0 HD Camera", Type: "camera"},
	}
)

// SimulatedStrategy fabricates scan results deterministically from a
// seed. It backs every method when scan.simulate is on, and stands in
// for real scanners on hosts without the platform tools.
type SimulatedStrategy struct {
	method Method
	rng    *rand.Rand
}

// NewSimulatedStrategy creates a simulated strategy for one method.
func NewSimulatedStrategy(method Method, seed int64) *SimulatedStrategy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &SimulatedStrategy{
		method: method,
		rng:    rand.New(rand.NewPCG(uint64(seed), uint64(method[0]))), //nolint:gosec // fixture data only
	}
}

func (s *SimulatedStrategy) Name() string   { return "simulated-" + string(s.method) }
func (s *SimulatedStrategy) Method() Method { return s.method }
func (s *SimulatedStrategy) Priority() int  { return PrioritySimulated }

// IsAvailable always succeeds; simulation has no system requirements.
func (s *SimulatedStrategy) IsAvailable(_ context.Context) bool { return true }

// Discover returns a random subset of the method's device pool after a
// short delay that mimics a real scan.
func (s *SimulatedStrategy) Discover(ctx context.Context) ([]*Result, error) {
	logger := zerolog.Ctx(ctx)

	delay := simulatedMinDelay + time.Duration(s.rng.IntN(simulatedMaxExtra))*time.Millisecond

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	pool := s.pool()

	// At least one device always shows up.
	count := 1 + s.rng.IntN(len(pool))

	perm := s.rng.Perm(len(pool))

	results := make([]*Result, 0, count)

	for _, idx := range perm[:count] {
		r := pool[idx]
		r.Method = s.method

		switch s.method {
		case MethodWifi:
			r.Address = s.randomMAC()
			r.Signal = fmt.Sprintf("%d", simulatedSignalFloor+s.rng.IntN(simulatedSignalSpan))
		case MethodBluetooth:
			r.Address = s.randomMAC()
			r.Paired = idx == 0
		case MethodCamera:
			r.Address = CameraID(idx)
		}

		results = append(results, &r)
	}

	logger.Debug().
		Str("method", string(s.method)).
		Int("devices_found", len(results)).
		Msg("simulated scan finished")

	return results, nil
}

func (s *SimulatedStrategy) pool() []Result {
	switch s.method {
	case MethodBluetooth:
		return simulatedBluetooth
	case MethodCamera:
		return simulatedCamera
	default:
		return simulatedWifi
	}
}

func (s *SimulatedStrategy) randomMAC() string {
	const macBytes = 6

	buf := make([]byte, macBytes)
	for i := range buf {
		buf[i] = byte(s.rng.IntN(256))
	}

	// Locally administered, unicast.
	buf[0] = (buf[0] | 0x02) &^ 0x01

	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", buf[0], buf[1], buf[2], buf[3], buf[4], buf[5])
}
