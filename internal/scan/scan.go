package scan

import (
	"context"
)

// Method identifies a discovery method exposed through the API.
type Method string

const (
	MethodWifi      Method = "wifi"
	MethodBluetooth Method = "bluetooth"
	MethodCamera    Method = "camera"
)

// Methods lists all supported discovery methods.
func Methods() []Method {
	return []Method{MethodWifi, MethodBluetooth, MethodCamera}
}

// ParseMethod validates a method string from the query parameter.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodWifi, MethodBluetooth, MethodCamera:
		return Method(s), true
	default:
		return "", false
	}
}

// Result represents a single discovered device before it is adopted
// into the registry.
type Result struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Type     string `json:"type"`
	IP       string `json:"ip,omitempty"`
	Signal   string `json:"signal,omitempty"`
	Security string `json:"security,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	Paired   bool   `json:"paired,omitempty"`
	Method   Method `json:"method"`
}

// Strategy defines a device discovery strategy.
type Strategy interface {
	// Name returns the strategy name.
	Name() string

	// Method returns the discovery method this strategy serves.
	Method() Method

	// Priority returns the strategy priority (higher = more important).
	Priority() int

	// IsAvailable checks if this strategy can run on the current system.
	IsAvailable(ctx context.Context) bool

	// Discover performs a scan and returns discovered devices.
	Discover(ctx context.Context) ([]*Result, error)
}

// Merger merges results from multiple strategies.
type Merger interface {
	// Merge deduplicates results from multiple sources.
	Merge(results []*Result) []*Result
}

// Decorator enriches results with additional information.
type Decorator interface {
	// Decorate returns enriched results without mutating the input.
	Decorate(ctx context.Context, results []*Result) ([]*Result, error)
}
