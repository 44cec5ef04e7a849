package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNmcliOutput(t *testing.T) {
	t.Parallel()

	out := "HomeNet-5G:87:WPA2:AA\\:BB\\:CC\\:DD\\:EE\\:FF\n" +
		":45::11\\:22\\:33\\:44\\:55\\:66\n" +
		"Office-Secure:62:WPA3:aa\\:11\\:bb\\:22\\:cc\\:33\n" +
		"garbage line\n" +
		"\n"

	results := parseNmcliOutput(out)
	require.Len(t, results, 3)

	assert.Equal(t, "HomeNet-5G", results[0].Name)
	assert.Equal(t, "87", results[0].Signal)
	assert.Equal(t, "WPA2", results[0].Security)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", results[0].Address)
	assert.Equal(t, MethodWifi, results[0].Method)

	// Empty SSID and security get placeholder values
	assert.Equal(t, "Hidden network", results[1].Name)
	assert.Equal(t, "Open", results[1].Security)
	assert.Equal(t, "11:22:33:44:55:66", results[1].Address)

	// Addresses are normalized to upper case
	assert.Equal(t, "AA:11:BB:22:CC:33", results[2].Address)
}

func TestSplitUnescaped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "plain fields",
			input:    "a:b:c",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "escaped separator stays in field",
			input:    "ssid:87:WPA2:AA\\:BB",
			expected: []string{"ssid", "87", "WPA2", "AA\\:BB"},
		},
		{
			name:     "empty fields survive",
			input:    ":45::addr",
			expected: []string{"", "45", "", "addr"},
		},
		{
			name:     "no separator",
			input:    "justone",
			expected: []string{"justone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, splitUnescaped(tt.input, ':'))
		})
	}
}

func TestParseNetshOutput(t *testing.T) {
	t.Parallel()

	out := `
Interface name : Wi-Fi
There are 2 networks currently visible.

SSID 1 : HomeNet
    Network type            : Infrastructure
    Authentication          : WPA2-Personal
    Encryption              : CCMP
    BSSID 1                 : aa:bb:cc:dd:ee:ff
         Signal             : 91%

SSID 2 :
    Network type            : Infrastructure
    Authentication          : Open
    BSSID 1                 : 11:22:33:44:55:66
         Signal             : 48%
`

	results := parseNetshOutput(out)
	require.Len(t, results, 2)

	assert.Equal(t, "HomeNet", results[0].Name)
	assert.Equal(t, "WPA2-Personal", results[0].Security)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", results[0].Address)
	assert.Equal(t, "91", results[0].Signal)

	assert.Equal(t, "Hidden network", results[1].Name)
	assert.Equal(t, "Open", results[1].Security)
	assert.Equal(t, "48", results[1].Signal)
}

func TestParseNetshOutputEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, parseNetshOutput(""))
	assert.Empty(t, parseNetshOutput("Interface name : Wi-Fi\n"))
}
