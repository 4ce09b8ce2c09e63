// Package logging builds the zerolog logger of the fetch tool.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at level.
// An unknown level falls back to info. Pretty selects human-readable console output.
func New(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zLevel = zerolog.InfoLevel
	}

	return zerolog.New(w).Level(zLevel).With().Timestamp().Logger()
}
