package scan

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	linuxOS   = "linux"
	windowsOS = "windows"

	wifiScanTimeout = 15 * time.Second

	nmcliFieldCount = 4
)

// WifiStrategy discovers Wi-Fi networks through the platform scanner
// (nmcli on Linux, netsh on Windows).
type WifiStrategy struct {
	iface    string
	priority int
}

// NewWifiStrategy creates a Wi-Fi scan strategy. iface may be empty to
// let the platform tool pick a default.
func NewWifiStrategy(iface string) *WifiStrategy {
	return &WifiStrategy{iface: iface, priority: PriorityWifi}
}

func (w *WifiStrategy) Name() string   { return "wifi-scan" }
func (w *WifiStrategy) Method() Method { return MethodWifi }
func (w *WifiStrategy) Priority() int  { return w.priority }

// IsAvailable checks whether the platform scan tool exists.
func (w *WifiStrategy) IsAvailable(_ context.Context) bool {
	switch runtime.GOOS {
	case linuxOS:
		_, err := exec.LookPath("nmcli")

		return err == nil
	case windowsOS:
		_, err := exec.LookPath("netsh")

		return err == nil
	default:
		return false
	}
}

// Discover scans for nearby Wi-Fi networks.
func (w *WifiStrategy) Discover(ctx context.Context) ([]*Result, error) {
	logger := zerolog.Ctx(ctx)

	ctx, cancel := context.WithTimeout(ctx, wifiScanTimeout)
	defer cancel()

	var (
		results []*Result
		err     error
	)

	switch runtime.GOOS {
	case linuxOS:
		results, err = w.scanLinux(ctx)
	case windowsOS:
		results, err = w.scanWindows(ctx)
	default:
		return []*Result{}, nil
	}

	if err != nil {
		logger.Debug().Err(err).Msg("wifi scan failed")

		return []*Result{}, nil
	}

	logger.Debug().Int("networks_found", len(results)).Msg("wifi scan finished")

	return results, nil
}

// scanLinux runs nmcli in terse mode and parses its colon-separated output.
func (w *WifiStrategy) scanLinux(ctx context.Context) ([]*Result, error) {
	args := []string{"-t", "-f", "SSID,SIGNAL,SECURITY,BSSID", "device", "wifi", "list", "--rescan", "yes"}
	if w.iface != "" {
		args = append(args, "ifname", w.iface)
	}

	out, err := exec.CommandContext(ctx, "nmcli", args...).Output()
	if err != nil {
		return nil, err
	}

	return parseNmcliOutput(string(out)), nil
}

// parseNmcliOutput parses nmcli terse output. BSSID colons are escaped
// with a backslash, so split on unescaped colons only.
func parseNmcliOutput(out string) []*Result {
	var results []*Result

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := splitUnescaped(line, ':')
		if len(fields) < nmcliFieldCount {
			continue
		}

		ssid := strings.TrimSpace(fields[0])
		if ssid == "" {
			ssid = "Hidden network"
		}

		security := strings.TrimSpace(fields[2])
		if security == "" {
			security = "Open"
		}

		results = append(results, &Result{
			Name:     ssid,
			Signal:   strings.TrimSpace(fields[1]),
			Security: security,
			Address:  strings.ToUpper(strings.ReplaceAll(fields[3], "\\:", ":")),
			Type:     "wifi",
			Method:   MethodWifi,
		})
	}

	return results
}

// splitUnescaped splits s on sep, honoring backslash escapes.
func splitUnescaped(s string, sep byte) []string {
	var (
		fields  []string
		current strings.Builder
	)

	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			current.WriteByte(s[i])
			current.WriteByte(s[i+1])
			i++
		case s[i] == sep:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteByte(s[i])
		}
	}

	fields = append(fields, current.String())

	return fields
}

// scanWindows runs netsh and parses its indented key:value output.
func (w *WifiStrategy) scanWindows(ctx context.Context) ([]*Result, error) {
	out, err := exec.CommandContext(ctx, "netsh", "wlan", "show", "networks", "mode=bssid").Output()
	if err != nil {
		return nil, err
	}

	return parseNetshOutput(string(out)), nil
}

// parseNetshOutput parses "netsh wlan show networks mode=bssid" output.
func parseNetshOutput(out string) []*Result {
	var (
		results []*Result
		current *Result
	)

	flush := func() {
		if current != nil && current.Name != "" {
			results = append(results, current)
		}

		current = nil
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.HasPrefix(key, "SSID"):
			flush()

			if value == "" {
				value = "Hidden network"
			}

			current = &Result{Name: value, Type: "wifi", Security: "Open", Method: MethodWifi}
		case current == nil:
			continue
		case key == "Authentication":
			current.Security = value
		case strings.HasPrefix(key, "BSSID"):
			current.Address = strings.ToUpper(value)
		case key == "Signal":
			current.Signal = strings.TrimSuffix(value, "%")
		}
	}

	flush()

	return results
}
