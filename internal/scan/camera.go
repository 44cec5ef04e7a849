package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

const defaultCameraMaxProbe = 5

// CameraStrategy probes local video capture devices. Cameras have no
// network address, so each gets a synthetic id derived from its index.
type CameraStrategy struct {
	maxProbe int
	priority int
}

// NewCameraStrategy creates a camera probe strategy. maxProbe bounds
// the number of device indexes checked.
func NewCameraStrategy(maxProbe int) *CameraStrategy {
	if maxProbe <= 0 {
		maxProbe = defaultCameraMaxProbe
	}

	return &CameraStrategy{maxProbe: maxProbe, priority: PriorityCamera}
}

func (c *CameraStrategy) Name() string   { return "camera-probe" }
func (c *CameraStrategy) Method() Method { return MethodCamera }
func (c *CameraStrategy) Priority() int  { return c.priority }

// IsAvailable reports whether the platform exposes probe-able video devices.
func (c *CameraStrategy) IsAvailable(_ context.Context) bool {
	return runtime.GOOS == linuxOS
}

// Discover probes /dev/video0../dev/videoN and reads the friendly name
// from sysfs when present.
func (c *CameraStrategy) Discover(ctx context.Context) ([]*Result, error) {
	logger := zerolog.Ctx(ctx)

	results := []*Result{}

	for index := range c.maxProbe {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		devPath := fmt.Sprintf("/dev/video%d", index)
		if _, err := os.Stat(devPath); err != nil {
			continue
		}

		results = append(results, &Result{
			Name:    cameraName(index),
			Address: CameraID(index),
			Type:    "camera",
			Method:  MethodCamera,
		})
	}

	logger.Debug().Int("cameras_found", len(results)).Msg("camera probe finished")

	return results, nil
}

// CameraID builds a synthetic stable address for a camera index,
// e.g. "CAM:00:0000:0000" for index 0.
func CameraID(index int) string {
	return fmt.Sprintf("CAM:%02d:%04d:%04d", index, index, index)
}

// cameraName reads the device name from sysfs, falling back to a
// generic label.
func cameraName(index int) string {
	raw, err := os.ReadFile(filepath.Join("/sys/class/video4linux", fmt.Sprintf("video%d", index), "name"))
	if err == nil {
		if name := strings.TrimSpace(string(raw)); name != "" {
			return name
		}
	}

	return fmt.Sprintf("Camera %d", index)
}
