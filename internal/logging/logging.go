// Package logging builds the zerolog loggers used by the command-line tools.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at info level, or debug level if debug
// is set. If human is true, output goes through a console writer instead of
// one JSON object per line.
func New(w io.Writer, debug, human bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := w
	if human {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// WithPhase returns a logger with the phase field set.
func WithPhase(l zerolog.Logger, phase string) zerolog.Logger {
	return l.With().Str("phase", phase).Logger()
}
