package devices_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfinder/devfinder/internal/devices"
	customerrors "github.com/devfinder/devfinder/internal/errors"
)

func TestGuardProtectVerify(t *testing.T) {
	t.Parallel()

	guard := devices.NewGuard()

	require.NoError(t, guard.Protect("dev-1", "secret"))
	assert.True(t, guard.IsProtected("dev-1"))
	assert.False(t, guard.IsProtected("dev-2"))

	require.NoError(t, guard.Verify("dev-1", "secret"))
	assert.ErrorIs(t, guard.Verify("dev-1", "wrong"), customerrors.ErrPasswordMismatch)
	assert.ErrorIs(t, guard.Verify("dev-1", ""), customerrors.ErrPasswordRequired)
	assert.ErrorIs(t, guard.Verify("dev-2", "secret"), customerrors.ErrDeviceNotProtected)
}

func TestGuardProtectValidation(t *testing.T) {
	t.Parallel()

	guard := devices.NewGuard()

	assert.ErrorIs(t, guard.Protect("dev-1", "  "), customerrors.ErrPasswordRequired)

	require.NoError(t, guard.Protect("dev-1", "secret"))
	assert.ErrorIs(t, guard.Protect("dev-1", "other"), customerrors.ErrDeviceAlreadyProtected)
}

func TestGuardUnprotect(t *testing.T) {
	t.Parallel()

	guard := devices.NewGuard()

	require.NoError(t, guard.Protect("dev-1", "secret"))

	assert.ErrorIs(t, guard.Unprotect("dev-1", "wrong"), customerrors.ErrPasswordMismatch)
	assert.True(t, guard.IsProtected("dev-1"))

	require.NoError(t, guard.Unprotect("dev-1", "secret"))
	assert.False(t, guard.IsProtected("dev-1"))

	// Can be protected again with a new password
	require.NoError(t, guard.Protect("dev-1", "fresh"))
	require.NoError(t, guard.Verify("dev-1", "fresh"))
}

func TestGuardForget(t *testing.T) {
	t.Parallel()

	guard := devices.NewGuard()

	require.NoError(t, guard.Protect("dev-1", "secret"))
	guard.Forget("dev-1")

	assert.False(t, guard.IsProtected("dev-1"))
	guard.Forget("dev-1") // idempotent
}
