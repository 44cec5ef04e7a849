package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Base builds the process logger writing to stdout and applies the
// configured level globally. format: json|console.
func Base(app, level, format string) zerolog.Logger {
	SetLevel(level)

	return New(writerForFormat(format), app)
}

// New builds a logger for the given writer. Filtering is left to the
// global level so config reloads take effect on every logger at once.
func New(w io.Writer, app string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("app", app).Logger()
}

// SetLevel applies a level name globally. Empty or unknown names fall
// back to info.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// Level reports the currently applied global level.
func Level() string {
	return zerolog.GlobalLevel().String()
}

func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel
	}

	if lvl, err := zerolog.ParseLevel(s); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}

	return zerolog.InfoLevel
}

func writerForFormat(format string) io.Writer {
	if strings.ToLower(format) == "console" {
		return zerolog.ConsoleWriter{Out: os.Stdout}
	}

	return os.Stdout
}
