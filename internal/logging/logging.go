// Package logging configures the process-wide zerolog logger. Components tag
// their log lines with a "component" field, replacing the teacher's
// "[ComponentName] ..." prefix idiom with a structured equivalent.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console-friendly logger at the given level ("debug", "info",
// "warn", "error"); unrecognised levels fall back to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()
}

// Component returns a child logger tagged with the given component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
