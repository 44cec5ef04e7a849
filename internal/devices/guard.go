package devices

import (
	"strings"
	"sync"

	customerrors "github.com/devfinder/devfinder/internal/errors"
	"github.com/devfinder/devfinder/internal/users"
)

// Guard keeps per-device password protection in memory. Passwords are
// stored as argon2id hashes and vanish with the process.
type Guard struct {
	mu     sync.RWMutex
	hashes map[string]string // device id -> password hash
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{hashes: make(map[string]string)}
}

// Protect sets a password on a device. Protecting an already protected
// device requires an Unprotect first.
func (g *Guard) Protect(deviceID, password string) error {
	if strings.TrimSpace(password) == "" {
		return customerrors.ErrPasswordRequired
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.hashes[deviceID]; ok {
		return customerrors.ErrDeviceAlreadyProtected
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return err
	}

	g.hashes[deviceID] = hash

	return nil
}

// Unprotect removes protection after verifying the password.
func (g *Guard) Unprotect(deviceID, password string) error {
	if err := g.Verify(deviceID, password); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.hashes, deviceID)

	return nil
}

// Verify checks a password against the stored hash.
func (g *Guard) Verify(deviceID, password string) error {
	g.mu.RLock()
	hash, ok := g.hashes[deviceID]
	g.mu.RUnlock()

	if !ok {
		return customerrors.ErrDeviceNotProtected
	}

	if strings.TrimSpace(password) == "" {
		return customerrors.ErrPasswordRequired
	}

	match, err := users.VerifyPassword(password, hash)
	if err != nil {
		return err
	}

	if !match {
		return customerrors.ErrPasswordMismatch
	}

	return nil
}

// IsProtected reports whether a device has a password set.
func (g *Guard) IsProtected(deviceID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.hashes[deviceID]

	return ok
}

// Forget drops protection without a password check. Used when the
// device itself is deleted.
func (g *Guard) Forget(deviceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.hashes, deviceID)
}
