package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	yaml "github.com/goccy/go-yaml"
)

var (
	errConfigPathEmpty            = errors.New("config path is empty")
	errAddressMustBeHostPort      = errors.New("address must be host:port or :port")
	errCacheTTLMustBeNonNegative  = errors.New("scan cache_ttl must be non-negative")
	errCameraProbeMustBePositive  = errors.New("scan camera max_probe must be positive")
	errBluetoothTimeoutNegative   = errors.New("scan bluetooth timeout must be non-negative")
	errSeedDeviceNameEmpty        = errors.New("inventory device name cannot be empty")
	errSeedDeviceAddressDuplicate = errors.New("duplicate inventory device address")
	errHistoryEntriesNegative     = errors.New("history max_entries must be non-negative")
	errUserEmailEmpty             = errors.New("user email cannot be empty")
)

const (
	defaultHTTPListen       = "127.0.0.1:47911"
	defaultHTTPReadTimeout  = 30 * time.Second
	defaultHTTPWriteTimeout = 30 * time.Second
	defaultHTTPIdleTimeout  = 120 * time.Second
	defaultMaxHeaderBytes   = 1024 * 1024 // 1MB
	defaultFilePerm         = 0o600

	defaultScanCacheTTL     = 30 * time.Second
	defaultBluetoothTimeout = 12 * time.Second
	defaultCameraMaxProbe   = 5
	defaultHistoryEntries   = 500
)

// HTTPConfig defines the dashboard HTTP server settings.
type HTTPConfig struct {
	Enabled        bool          `yaml:"enabled,omitempty"`
	Listen         string        `yaml:"listen,omitempty"`
	ReadTimeout    time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout   time.Duration `yaml:"write_timeout,omitempty"`
	IdleTimeout    time.Duration `yaml:"idle_timeout,omitempty"`
	MaxHeaderBytes int           `yaml:"max_header_bytes,omitempty"`
	MaxRequestSize int64         `yaml:"max_request_size,omitempty"` // Max request body size in bytes (default 1MB)
}

// LogConfig defines logging configuration (simplified - only level used).
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
}

// WifiScanConfig configures the Wi-Fi discovery strategy.
type WifiScanConfig struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Interface string `yaml:"interface,omitempty"`
}

// BluetoothScanConfig configures the Bluetooth discovery strategy.
type BluetoothScanConfig struct {
	Enabled bool          `yaml:"enabled,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CameraScanConfig configures the camera probe strategy.
type CameraScanConfig struct {
	Enabled  bool `yaml:"enabled,omitempty"`
	MaxProbe int  `yaml:"max_probe,omitempty"`
}

// ScanConfig defines discovery scanning behavior.
type ScanConfig struct {
	// CacheTTL bounds how long per-method scan results are reused.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`
	// Simulate forces the deterministic simulated strategies even when
	// real scanning tools are present. Useful for demos and tests.
	Simulate  bool                `yaml:"simulate,omitempty"`
	Seed      int64               `yaml:"seed,omitempty"`
	Wifi      WifiScanConfig      `yaml:"wifi,omitempty"`
	Bluetooth BluetoothScanConfig `yaml:"bluetooth,omitempty"`
	Camera    CameraScanConfig    `yaml:"camera,omitempty"`
}

// HistoryConfig defines the activity feed settings.
type HistoryConfig struct {
	Enabled    bool `yaml:"enabled,omitempty"`
	MaxEntries int  `yaml:"max_entries,omitempty"`
}

// SeedDevice is a device loaded into the registry at startup.
// The registry never writes inventory back; runtime state is ephemeral.
type SeedDevice struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Address  string `yaml:"address,omitempty"`
	IP       string `yaml:"ip,omitempty"`
	Favorite bool   `yaml:"favorite,omitempty"`
}

// UserConfig represents a dashboard user.
type UserConfig struct {
	Email    string `json:"email"    yaml:"email"`
	Password string `json:"password" yaml:"password"` // This is a hash, not plain text
	Role     string `json:"role"     yaml:"role"`     // admin|user
}

// UpdateConfig defines release check settings.
type UpdateConfig struct {
	Enabled           bool `json:"enabled"            yaml:"enabled"`
	IncludePrerelease bool `json:"include_prerelease" yaml:"include_prerelease,omitempty"`
}

// Config is the main application configuration. The mutable sections
// (users and everything touched by hot reload) are guarded by mu; use
// the accessor methods instead of reading Users directly once the
// watcher is running.
type Config struct {
	AppName   string        `yaml:"app_name,omitempty"`
	HTTP      HTTPConfig    `yaml:"http,omitempty"`
	Log       LogConfig     `yaml:"log,omitempty"`
	Scan      ScanConfig    `yaml:"scan,omitempty"`
	History   HistoryConfig `yaml:"history,omitempty"`
	Inventory []SeedDevice  `yaml:"inventory,omitempty"`
	Users     []UserConfig  `yaml:"users,omitempty"`
	Update    UpdateConfig  `yaml:"update,omitempty"`
	Path      string        `yaml:"-"`

	mu sync.RWMutex
}

// global mutex to serialize YAML writes.
var saveMu sync.Mutex //nolint:gochecknoglobals // global mutex for config writes

// SafeConfig represents a configuration without sensitive data for API responses.
type SafeConfig struct {
	AppName   string        `json:"app_name,omitempty"`
	HTTP      HTTPConfig    `json:"http,omitzero"`
	Log       LogConfig     `json:"log,omitzero"`
	Scan      ScanConfig    `json:"scan,omitzero"`
	History   HistoryConfig `json:"history,omitzero"`
	Inventory []SeedDevice  `json:"inventory,omitempty"`
	Update    UpdateConfig  `json:"update,omitzero"`
}

// ToSafeConfig converts Config to SafeConfig (without user password hashes).
func (c *Config) ToSafeConfig() SafeConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return SafeConfig{
		AppName:   c.AppName,
		HTTP:      c.HTTP,
		Log:       c.Log,
		Scan:      c.Scan,
		History:   c.History,
		Inventory: c.Inventory,
		Update:    c.Update,
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path) //nolint:gosec // config file path is validated
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no backing file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "devfinder"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// HTTP defaults
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = defaultHTTPListen
	}

	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = defaultHTTPReadTimeout
	}

	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = defaultHTTPWriteTimeout
	}

	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = defaultHTTPIdleTimeout
	}

	if c.HTTP.MaxHeaderBytes == 0 {
		c.HTTP.MaxHeaderBytes = defaultMaxHeaderBytes
	}

	if !c.HTTP.Enabled {
		c.HTTP.Enabled = true
	}

	// Scan defaults
	if c.Scan.CacheTTL == 0 {
		c.Scan.CacheTTL = defaultScanCacheTTL
	}

	if c.Scan.Bluetooth.Timeout == 0 {
		c.Scan.Bluetooth.Timeout = defaultBluetoothTimeout
	}

	if c.Scan.Camera.MaxProbe == 0 {
		c.Scan.Camera.MaxProbe = defaultCameraMaxProbe
	}

	if !c.Scan.Wifi.Enabled {
		c.Scan.Wifi.Enabled = true
	}

	if !c.Scan.Bluetooth.Enabled {
		c.Scan.Bluetooth.Enabled = true
	}

	if !c.Scan.Camera.Enabled {
		c.Scan.Camera.Enabled = true
	}

	// History defaults
	if !c.History.Enabled {
		c.History.Enabled = true
	}

	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = defaultHistoryEntries
	}
}

// Save writes the configuration back to the original file path.
func (c *Config) Save() error {
	saveMu.Lock()
	defer saveMu.Unlock()

	if c.Path == "" {
		return errConfigPathEmpty
	}

	c.mu.RLock()
	out, err := yaml.Marshal(c)
	c.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(c.Path, out, defaultFilePerm); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", c.Path, err)
	}

	return nil
}

func (c *Config) Validate() error {
	if err := validateAddr(c.HTTP.Listen); err != nil {
		return fmt.Errorf("invalid http.listen: %w", err)
	}

	if c.Scan.CacheTTL < 0 {
		return errCacheTTLMustBeNonNegative
	}

	if c.Scan.Camera.MaxProbe <= 0 {
		return errCameraProbeMustBePositive
	}

	if c.Scan.Bluetooth.Timeout < 0 {
		return errBluetoothTimeoutNegative
	}

	if c.History.MaxEntries < 0 {
		return errHistoryEntriesNegative
	}

	seen := map[string]struct{}{}

	for _, d := range c.Inventory {
		if strings.TrimSpace(d.Name) == "" {
			return errSeedDeviceNameEmpty
		}

		if d.Address == "" {
			continue
		}

		key := strings.ToLower(d.Address)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s", errSeedDeviceAddressDuplicate, d.Address)
		}

		seen[key] = struct{}{}
	}

	for _, u := range c.Users {
		if strings.TrimSpace(u.Email) == "" {
			return errUserEmailEmpty
		}
	}

	return nil
}

// Reload copies the hot-reloadable sections from a freshly loaded
// config. Server wiring (listen address, scan strategies) stays fixed
// until restart.
func (c *Config) Reload(next *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log = next.Log
	c.History = next.History
	c.Update = next.Update
	c.Inventory = slices.Clone(next.Inventory)
	c.Users = slices.Clone(next.Users)
}

// UsersSnapshot returns a copy of the configured users.
func (c *Config) UsersSnapshot() []UserConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.Users)
}

// HasUsers reports whether any dashboard user is configured.
func (c *Config) HasUsers() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.Users) > 0
}

// FindUser returns a copy of the user with the given email.
func (c *Config) FindUser(email string) (UserConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, u := range c.Users {
		if u.Email == email {
			return u, true
		}
	}

	return UserConfig{}, false
}

// ReplaceUsers swaps the user list.
func (c *Config) ReplaceUsers(users []UserConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Users = users
}

// AppendUser adds a user to the list.
func (c *Config) AppendUser(u UserConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Users = append(c.Users, u)
}

func validateAddr(addr string) error {
	if !strings.HasPrefix(addr, ":") && !strings.Contains(addr, ":") {
		return errAddressMustBeHostPort
	}

	_, _, err := net.SplitHostPort(addr)

	return err
}
