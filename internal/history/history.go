package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMaxEntries = 500

// Kind classifies an activity feed entry.
type Kind string

const (
	KindDeviceAdded     Kind = "device_added"
	KindDeviceUpdated   Kind = "device_updated"
	KindDeviceDeleted   Kind = "device_deleted"
	KindScanStarted     Kind = "scan_started"
	KindScanFinished    Kind = "scan_finished"
	KindScanFailed      Kind = "scan_failed"
	KindProtectionSet   Kind = "protection_set"
	KindProtectionUnset Kind = "protection_unset"
)

// Entry is one activity feed record.
type Entry struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	DeviceID  string         `json:"device_id,omitempty"`
	Method    string         `json:"method,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Feed is a bounded in-memory ring of activity entries, newest first
// on read. When full, the oldest entry is dropped.
type Feed struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	max     int
	enabled bool
}

// NewFeed creates a feed holding at most maxEntries records.
func NewFeed(maxEntries int, enabled bool) *Feed {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &Feed{
		entries: make([]Entry, maxEntries),
		max:     maxEntries,
		enabled: enabled,
	}
}

// Record appends an entry. No-op when the feed is disabled.
func (f *Feed) Record(kind Kind, message string, opts ...Option) {
	if !f.enabled {
		return
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
	}

	for _, opt := range opts {
		opt(&entry)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[f.next] = entry
	f.next = (f.next + 1) % f.max

	if f.next == 0 {
		f.full = true
	}
}

// Option customizes a recorded entry.
type Option func(*Entry)

// WithDevice attaches a device id.
func WithDevice(deviceID string) Option {
	return func(e *Entry) { e.DeviceID = deviceID }
}

// WithMethod attaches a scan method.
func WithMethod(method string) Option {
	return func(e *Entry) { e.Method = method }
}

// WithDetails attaches arbitrary details.
func WithDetails(details map[string]any) Option {
	return func(e *Entry) { e.Details = details }
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (f *Feed) List(limit int) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	size := f.next
	if f.full {
		size = f.max
	}

	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Entry, 0, limit)

	for i := 1; i <= limit; i++ {
		idx := (f.next - i + f.max) % f.max
		out = append(out, f.entries[idx])
	}

	return out
}

// Len returns the number of stored entries.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.full {
		return f.max
	}

	return f.next
}

// Clear drops all entries.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next = 0
	f.full = false
}
