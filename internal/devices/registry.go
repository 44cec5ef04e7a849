package devices

import (
	"math/rand/v2"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devfinder/devfinder/internal/config"
	customerrors "github.com/devfinder/devfinder/internal/errors"
)

// Event is a registry change notification.
type Event struct {
	Type   string  `json:"type"`
	Device *Device `json:"device"`
}

// Registry holds all devices in memory. Status is assigned randomly on
// creation and re-rolled on toggle; there is no real connectivity check.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
	rng     *rand.Rand
	subs    []func(Event)
	subsMu  sync.RWMutex
}

// NewRegistry creates an empty registry. A zero seed derives one from the clock.
func NewRegistry(seed int64) *Registry {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Registry{
		devices: make(map[string]*Device),
		rng:     rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1)), //nolint:gosec // statuses are simulated, not secret
	}
}

// Subscribe registers a callback for registry change events.
func (r *Registry) Subscribe(fn func(Event)) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	r.subs = append(r.subs, fn)
}

func (r *Registry) notify(eventType string, d *Device) {
	r.subsMu.RLock()
	subs := r.subs
	r.subsMu.RUnlock()

	for _, fn := range subs {
		fn(Event{Type: eventType, Device: d.Clone()})
	}
}

// LoadInventory seeds the registry from configuration at startup.
// Seed devices behave like manually added ones.
func (r *Registry) LoadInventory(inventory []config.SeedDevice) {
	for _, sd := range inventory {
		typ := DeviceType(sd.Type)
		if typ == "" {
			typ = GuessDeviceType(sd.Name)
		}

		device, err := r.Add(sd.Name, typ, sd.IP, sd.Address)
		if err != nil {
			continue
		}

		if sd.Favorite {
			_, _ = r.ToggleFavorite(device.ID)
		}
	}
}

// Add creates a manually added device with a randomly assigned status.
func (r *Registry) Add(name string, typ DeviceType, ip, address string) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, customerrors.ErrDeviceNameRequired
	}

	if ip != "" && net.ParseIP(ip) == nil {
		return nil, customerrors.ErrInvalidDeviceIP
	}

	if typ == "" {
		typ = GuessDeviceType(name)
	}

	r.mu.Lock()

	if address != "" {
		if _, ok := r.findByAddress(address); ok {
			r.mu.Unlock()

			return nil, customerrors.ErrDeviceAddressExists
		}
	}

	now := time.Now()
	device := &Device{
		ID:            uuid.NewString(),
		Name:          name,
		Type:          typ,
		Status:        r.randomStatus(),
		IP:            ip,
		Address:       address,
		Source:        SourceManual,
		ManuallyAdded: true,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastSeen:      now,
	}

	r.devices[device.ID] = device
	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventAdded, out)

	return out, nil
}

// Adoption carries the discovery fields merged into the registry.
type Adoption struct {
	Name     string
	Type     DeviceType
	Address  string
	IP       string
	Hostname string
	Signal   string
	Security string
	Source   string
}

// Adopt upserts a discovered device by address. Existing devices keep
// their id, favorite flag and protection; discovery refreshes the rest.
// An empty IP or Hostname never clears a known one.
func (r *Registry) Adopt(in Adoption) *Device {
	r.mu.Lock()

	now := time.Now()

	if existing, ok := r.findByAddress(in.Address); ok && in.Address != "" {
		existing.Name = in.Name
		existing.Type = in.Type
		existing.Signal = in.Signal
		existing.Security = in.Security
		existing.Source = in.Source
		existing.Status = StatusOnline // it answered a scan just now
		existing.LastSeen = now
		existing.UpdatedAt = now

		if in.IP != "" {
			existing.IP = in.IP
		}

		if in.Hostname != "" {
			existing.Hostname = in.Hostname
		}

		out := existing.Clone()
		r.mu.Unlock()

		r.notify(EventUpdated, out)

		return out
	}

	device := &Device{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Type:      in.Type,
		Status:    r.randomStatus(),
		IP:        in.IP,
		Hostname:  in.Hostname,
		Address:   in.Address,
		Signal:    in.Signal,
		Security:  in.Security,
		Source:    in.Source,
		CreatedAt: now,
		UpdatedAt: now,
		LastSeen:  now,
	}

	r.devices[device.ID] = device
	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventAdded, out)

	return out
}

// Update changes the editable fields of a device.
func (r *Registry) Update(id, name string, typ DeviceType, ip string) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, customerrors.ErrDeviceNameRequired
	}

	if ip != "" && net.ParseIP(ip) == nil {
		return nil, customerrors.ErrInvalidDeviceIP
	}

	r.mu.Lock()

	device, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()

		return nil, customerrors.ErrDeviceNotFound
	}

	device.Name = name
	if typ != "" {
		device.Type = typ
	}

	device.IP = ip
	device.UpdatedAt = time.Now()

	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventUpdated, out)

	return out, nil
}

// Delete removes a device. Password gating for protected devices lives
// in the API layer on top of the Guard.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()

	device, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()

		return customerrors.ErrDeviceNotFound
	}

	delete(r.devices, id)
	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventDeleted, out)

	return nil
}

// ToggleFavorite flips the favorite flag and returns the updated device.
func (r *Registry) ToggleFavorite(id string) (*Device, error) {
	r.mu.Lock()

	device, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()

		return nil, customerrors.ErrDeviceNotFound
	}

	device.Favorite = !device.Favorite
	device.UpdatedAt = time.Now()

	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventUpdated, out)

	return out, nil
}

// ToggleStatus re-rolls the simulated status. The device always moves
// to the opposite state so the toggle is visible in the UI.
func (r *Registry) ToggleStatus(id string) (*Device, error) {
	r.mu.Lock()

	device, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()

		return nil, customerrors.ErrDeviceNotFound
	}

	if device.IsOnline() {
		device.Status = StatusOffline
	} else {
		device.Status = StatusOnline
		device.LastSeen = time.Now()
	}

	device.UpdatedAt = time.Now()

	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventUpdated, out)

	return out, nil
}

// SetStatus sets an explicit status.
func (r *Registry) SetStatus(id, status string) (*Device, error) {
	if status != StatusOnline && status != StatusOffline {
		return nil, customerrors.ErrInvalidStatus
	}

	r.mu.Lock()

	device, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()

		return nil, customerrors.ErrDeviceNotFound
	}

	device.Status = status
	device.UpdatedAt = time.Now()

	if status == StatusOnline {
		device.LastSeen = time.Now()
	}

	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventUpdated, out)

	return out, nil
}

// SetHostname records a reverse-DNS name for a device.
func (r *Registry) SetHostname(id, hostname string) {
	r.mu.Lock()

	device, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()

		return
	}

	device.Hostname = hostname
	device.UpdatedAt = time.Now()

	out := device.Clone()
	r.mu.Unlock()

	r.notify(EventUpdated, out)
}

// MarkProtected records the protection flag shown in the sidebar.
func (r *Registry) MarkProtected(id string, protected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if device, ok := r.devices[id]; ok {
		device.Protected = protected
		device.UpdatedAt = time.Now()
	}
}

// Get returns a device by id.
func (r *Registry) Get(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[id]
	if !ok {
		return nil, false
	}

	return device.Clone(), true
}

// GetByAddress returns a device by its address.
func (r *Registry) GetByAddress(address string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.findByAddress(address)
	if !ok {
		return nil, false
	}

	return device.Clone(), true
}

// List returns all devices, name-ordered.
func (r *Registry) List() []*Device {
	r.mu.RLock()

	devices := make([]*Device, 0, len(r.devices))
	for _, device := range r.devices {
		devices = append(devices, device.Clone())
	}

	r.mu.RUnlock()

	sortByName(devices)

	return devices
}

// Sections buckets devices into the sidebar sections, filtered by query.
func (r *Registry) Sections(query string) Sections {
	query = strings.TrimSpace(query)

	var out Sections

	for _, device := range r.List() {
		if !device.Matches(query) {
			continue
		}

		entry := Entry{Device: device, Highlights: highlightRanges(device.Name, query)}

		switch device.Section() {
		case SectionFavorites:
			out.Favorites = append(out.Favorites, entry)
		case SectionOnline:
			out.Online = append(out.Online, entry)
		case SectionOffline:
			out.Offline = append(out.Offline, entry)
		}
	}

	return out
}

// Stats returns registry counters for the overview endpoint.
func (r *Registry) Stats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var online, favorites, protected, manual int

	types := make(map[DeviceType]int)

	for _, device := range r.devices {
		if device.IsOnline() {
			online++
		}

		if device.Favorite {
			favorites++
		}

		if device.Protected {
			protected++
		}

		if device.ManuallyAdded {
			manual++
		}

		types[device.Type]++
	}

	return map[string]any{
		"total_devices":     len(r.devices),
		"online_devices":    online,
		"offline_devices":   len(r.devices) - online,
		"favorite_devices":  favorites,
		"protected_devices": protected,
		"manual_devices":    manual,
		"device_types":      types,
	}
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.devices)
}

// findByAddress must be called with the lock held.
func (r *Registry) findByAddress(address string) (*Device, bool) {
	if address == "" {
		return nil, false
	}

	for _, device := range r.devices {
		if strings.EqualFold(device.Address, address) {
			return device, true
		}
	}

	return nil, false
}

// randomStatus must be called with the lock held.
func (r *Registry) randomStatus() string {
	if r.rng.IntN(2) == 0 {
		return StatusOffline
	}

	return StatusOnline
}

func sortByName(devices []*Device) {
	sort.Slice(devices, func(i, j int) bool {
		a := strings.ToLower(devices[i].Name)
		b := strings.ToLower(devices[j].Name)

		if a == b {
			return devices[i].ID < devices[j].ID
		}

		return a < b
	})
}
