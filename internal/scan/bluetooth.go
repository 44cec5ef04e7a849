package scan

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBluetoothTimeout = 12 * time.Second

	bluetoothctlMinParts = 2
	bluetoothLineParts   = 3
	bluetoothFetches     = 2
)

// BluetoothStrategy discovers Bluetooth devices via bluetoothctl.
// Discovered and paired devices are fetched concurrently and merged,
// with paired entries winning on address collisions.
type BluetoothStrategy struct {
	timeout  time.Duration
	priority int
}

// NewBluetoothStrategy creates a Bluetooth scan strategy.
func NewBluetoothStrategy(timeout time.Duration) *BluetoothStrategy {
	if timeout <= 0 {
		timeout = defaultBluetoothTimeout
	}

	return &BluetoothStrategy{timeout: timeout, priority: PriorityBluetooth}
}

func (b *BluetoothStrategy) Name() string   { return "bluetooth-scan" }
func (b *BluetoothStrategy) Method() Method { return MethodBluetooth }
func (b *BluetoothStrategy) Priority() int  { return b.priority }

// IsAvailable checks whether bluetoothctl exists.
func (b *BluetoothStrategy) IsAvailable(_ context.Context) bool {
	_, err := exec.LookPath("bluetoothctl")

	return err == nil
}

// Discover scans for nearby and paired Bluetooth devices. Both fetches
// run concurrently; one failing still yields the other's results, and
// the scan fails only when both fail.
func (b *BluetoothStrategy) Discover(ctx context.Context) ([]*Result, error) {
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var (
		mu         sync.Mutex
		discovered []*Result
		paired     []*Result
		errs       []error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		results, err := b.listDevices(gctx, false)

		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			errs = append(errs, err)

			return nil
		}

		discovered = results

		return nil
	})

	g.Go(func() error {
		results, err := b.ListPaired(gctx)

		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			errs = append(errs, err)

			return nil
		}

		paired = results

		return nil
	})

	_ = g.Wait()

	if len(errs) == bluetoothFetches {
		logger.Debug().Errs("errors", errs).Msg("bluetooth scan failed")

		return []*Result{}, errs[0]
	}

	merged := mergeByAddress(paired, discovered)

	logger.Debug().
		Int("discovered", len(discovered)).
		Int("paired", len(paired)).
		Int("total", len(merged)).
		Msg("bluetooth scan finished")

	return merged, nil
}

// ListPaired returns only paired devices.
func (b *BluetoothStrategy) ListPaired(ctx context.Context) ([]*Result, error) {
	results, err := b.listDevices(ctx, true)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		r.Paired = true
	}

	return results, nil
}

// listDevices runs "bluetoothctl devices" or "bluetoothctl devices Paired".
func (b *BluetoothStrategy) listDevices(ctx context.Context, pairedOnly bool) ([]*Result, error) {
	args := []string{"devices"}
	if pairedOnly {
		args = append(args, "Paired")
	}

	out, err := exec.CommandContext(ctx, "bluetoothctl", args...).Output()
	if err != nil {
		return nil, err
	}

	return parseBluetoothctlOutput(string(out)), nil
}

// parseBluetoothctlOutput parses lines like
// "Device AA:BB:CC:DD:EE:FF Living Room Speaker".
func parseBluetoothctlOutput(out string) []*Result {
	var results []*Result

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Device ") {
			continue
		}

		parts := strings.SplitN(line, " ", bluetoothLineParts)
		if len(parts) < bluetoothctlMinParts {
			continue
		}

		name := "Unknown device"
		if len(parts) == bluetoothLineParts && strings.TrimSpace(parts[2]) != "" {
			name = strings.TrimSpace(parts[2])
		}

		results = append(results, &Result{
			Name:    name,
			Address: strings.ToUpper(parts[1]),
			Type:    "bluetooth",
			Method:  MethodBluetooth,
		})
	}

	return results
}

// mergeByAddress merges result sets, earlier sets winning on address
// collisions. Input order within a set is preserved.
func mergeByAddress(sets ...[]*Result) []*Result {
	seen := make(map[string]bool)

	var merged []*Result

	for _, set := range sets {
		for _, r := range set {
			key := strings.ToUpper(r.Address)
			if key != "" && seen[key] {
				continue
			}

			seen[key] = true

			merged = append(merged, r)
		}
	}

	if merged == nil {
		merged = []*Result{}
	}

	return merged
}
