package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBluetoothctlOutput(t *testing.T) {
	t.Parallel()

	out := "Device aa:bb:cc:dd:ee:ff Living Room Speaker\n" +
		"Device 11:22:33:44:55:66\n" +
		"Device 77:88:99:AA:BB:CC   \n" +
		"[NEW] Controller 00:00:00:00:00:00 host\n" +
		"\n"

	results := parseBluetoothctlOutput(out)
	require.Len(t, results, 3)

	assert.Equal(t, "Living Room Speaker", results[0].Name)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", results[0].Address)
	assert.Equal(t, MethodBluetooth, results[0].Method)

	// A device line without a name gets a placeholder
	assert.Equal(t, "Unknown device", results[1].Name)
	assert.Equal(t, "11:22:33:44:55:66", results[1].Address)

	// Trailing whitespace is not a name
	assert.Equal(t, "Unknown device", results[2].Name)
}

func TestParseBluetoothctlOutputEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, parseBluetoothctlOutput(""))
	assert.Empty(t, parseBluetoothctlOutput("No default controller available\n"))
}

func TestMergeByAddress(t *testing.T) {
	t.Parallel()

	paired := []*Result{
		{Name: "Speaker", Address: "AA:BB:CC:DD:EE:FF", Paired: true},
	}
	discovered := []*Result{
		{Name: "speaker nearby", Address: "aa:bb:cc:dd:ee:ff"},
		{Name: "Keyboard", Address: "11:22:33:44:55:66"},
	}

	merged := mergeByAddress(paired, discovered)
	require.Len(t, merged, 2)

	// Earlier sets win on address collisions
	assert.Equal(t, "Speaker", merged[0].Name)
	assert.True(t, merged[0].Paired)
	assert.Equal(t, "Keyboard", merged[1].Name)
}

func TestMergeByAddressEmpty(t *testing.T) {
	t.Parallel()

	merged := mergeByAddress(nil, nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}
