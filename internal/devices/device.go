package devices

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DeviceType classifies a device for icon selection in the sidebar.
type DeviceType string

// Device represents a managed device shown in the dashboard sidebar.
// Identity and state live only in the in-memory registry; nothing is
// persisted across restarts.
type Device struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      DeviceType `json:"type"`
	Status    string     `json:"status"` // StatusOnline, StatusOffline
	Favorite  bool       `json:"favorite"`
	Protected bool       `json:"protected"`
	// IP is set for manually added devices only.
	IP string `json:"ip,omitempty"`
	// Hostname is backfilled by reverse DNS when an IP is known.
	Hostname string `json:"hostname,omitempty"`
	// Address is a MAC, Bluetooth address or synthetic camera id.
	Address       string    `json:"address,omitempty"`
	Signal        string    `json:"signal,omitempty"`
	Security      string    `json:"security,omitempty"`
	Source        string    `json:"source"`
	ManuallyAdded bool      `json:"manually_added"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastSeen      time.Time `json:"last_seen"`
}

// Clone creates a deep copy of the device.
func (d *Device) Clone() *Device {
	c := *d

	return &c
}

// IsOnline checks if the device is online.
func (d *Device) IsOnline() bool {
	return d.Status == StatusOnline
}

// Section returns the sidebar section the device belongs to.
// Favorites win over status; a device appears in exactly one section.
func (d *Device) Section() Section {
	if d.Favorite {
		return SectionFavorites
	}

	if d.IsOnline() {
		return SectionOnline
	}

	return SectionOffline
}

// DisplayName returns a non-empty name for UI and error messages.
func (d *Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}

	return d.Address
}

// Matches reports whether the device matches a case-insensitive
// substring query over name, address and ip. An empty query matches.
// Folding is rune-by-rune so it agrees with highlightRanges on names
// where lowercasing changes byte lengths.
func (d *Device) Matches(query string) bool {
	if query == "" {
		return true
	}

	q, _ := foldString(query)

	for _, field := range []string{d.Name, d.Address, d.IP} {
		folded, _ := foldString(field)
		if strings.Contains(folded, q) {
			return true
		}
	}

	return false
}

// GuessDeviceType derives a device type from its name.
func GuessDeviceType(name string) DeviceType {
	n := strings.ToLower(name)

	switch {
	case containsAny(n, "iphone", "android", "galaxy", "pixel", "phone"):
		return DeviceTypePhone
	case containsAny(n, "printer", "laserjet", "deskjet", "epson", "brother"):
		return DeviceTypePrinter
	case containsAny(n, "sensor", "thermostat", "meter"):
		return DeviceTypeSensor
	case containsAny(n, "cam", "webcam", "video"):
		return DeviceTypeCamera
	case containsAny(n, "router", "gateway", "access point"):
		return DeviceTypeRouter
	case containsAny(n, "macbook", "laptop", "desktop", "pc", "thinkpad"):
		return DeviceTypeComputer
	default:
		return DeviceTypeOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

// MatchRange marks a highlighted byte range in a device name.
type MatchRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Entry is a device with search highlight ranges for the sidebar.
type Entry struct {
	*Device

	Highlights []MatchRange `json:"highlights,omitempty"`
}

// Sections is the bucketed sidebar view.
type Sections struct {
	Favorites []Entry `json:"favorites"`
	Online    []Entry `json:"online"`
	Offline   []Entry `json:"offline"`
}

// Total returns the number of devices across all sections.
func (s Sections) Total() int {
	return len(s.Favorites) + len(s.Online) + len(s.Offline)
}

// foldString lowercases s rune-by-rune and records, for every byte of
// the folded form, the byte offset of the source rune in the original.
func foldString(s string) (string, []int) {
	var b strings.Builder

	offsets := make([]int, 0, len(s))

	for i, r := range s {
		folded := unicode.ToLower(r)
		for range utf8.RuneLen(folded) {
			offsets = append(offsets, i)
		}

		b.WriteRune(folded)
	}

	return b.String(), offsets
}

// highlightRanges returns the byte ranges of query occurrences in name.
// Ranges always index the original string, even when folding changes
// byte lengths (e.g. a dotted capital I folding to a single-byte i).
func highlightRanges(name, query string) []MatchRange {
	if query == "" {
		return nil
	}

	folded, offsets := foldString(name)
	q, _ := foldString(query)

	var ranges []MatchRange

	for from := 0; ; {
		i := strings.Index(folded[from:], q)
		if i < 0 {
			break
		}

		lo := from + i
		hi := lo + len(q)

		start := offsets[lo]

		end := len(name)
		if hi < len(folded) {
			end = offsets[hi]
		}

		ranges = append(ranges, MatchRange{Start: start, End: end})
		from = hi
	}

	return ranges
}
