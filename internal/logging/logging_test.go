package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfinder/devfinder/internal/logging"
)

// The level is process-global, so none of these tests run in parallel.

func TestNewWritesAppField(t *testing.T) {
	logging.SetLevel("info")
	t.Cleanup(func() { logging.SetLevel("info") })

	var buf bytes.Buffer

	logger := logging.New(&buf, "devfinder")
	logger.Info().Str("device", "printer").Msg("device added")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	assert.Equal(t, "devfinder", line["app"])
	assert.Equal(t, "device added", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "printer", line["device"])
	assert.Contains(t, line, "time")
}

func TestSetLevelFiltersOutput(t *testing.T) {
	t.Cleanup(func() { logging.SetLevel("info") })

	var buf bytes.Buffer

	logger := logging.New(&buf, "devfinder")

	logging.SetLevel("warn")
	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")

	// Reload to a lower level takes effect on the same logger
	buf.Reset()
	logging.SetLevel("debug")
	logger.Debug().Msg("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSetLevelParsing(t *testing.T) {
	t.Cleanup(func() { logging.SetLevel("info") })

	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "upper case", level: "WARN", want: zerolog.WarnLevel},
		{name: "padded", level: "  error  ", want: zerolog.ErrorLevel},
		{name: "empty falls back to info", level: "", want: zerolog.InfoLevel},
		{name: "unknown falls back to info", level: "loud", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logging.SetLevel(tt.level)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
			assert.Equal(t, tt.want.String(), logging.Level())
		})
	}
}

func TestBase(t *testing.T) {
	t.Cleanup(func() { logging.SetLevel("info") })

	for _, format := range []string{"json", "console"} {
		logger := logging.Base("devfinder", "debug", format)
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel(), format)
		logger.Debug().Msg("boot")
	}
}
