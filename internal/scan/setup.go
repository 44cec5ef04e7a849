package scan

import (
	"github.com/devfinder/devfinder/internal/config"
)

// NewManagerFromConfig builds a manager wired per the scan config.
// With simulate on, only simulated strategies are registered; otherwise
// real scanners run first and simulated ones back them up on hosts
// without the platform tools.
func NewManagerFromConfig(cfg config.ScanConfig) *Manager {
	m := NewManager(cfg.CacheTTL)

	if cfg.Wifi.Enabled {
		if !cfg.Simulate {
			m.AddStrategy(NewWifiStrategy(cfg.Wifi.Interface))
		}

		m.AddStrategy(NewSimulatedStrategy(MethodWifi, cfg.Seed))
	}

	if cfg.Bluetooth.Enabled {
		if !cfg.Simulate {
			m.AddStrategy(NewBluetoothStrategy(cfg.Bluetooth.Timeout))
		}

		m.AddStrategy(NewSimulatedStrategy(MethodBluetooth, cfg.Seed))
	}

	if cfg.Camera.Enabled {
		if !cfg.Simulate {
			m.AddStrategy(NewCameraStrategy(cfg.Camera.MaxProbe))
		}

		m.AddStrategy(NewSimulatedStrategy(MethodCamera, cfg.Seed))
	}

	if !cfg.Simulate {
		m.AddDecorator(NewRDNSDecorator(NewResolver("")))
	}

	return m
}
