// Package logger builds the process root logger and the per-component
// sub-loggers derived from it. Every component logs through a sub-logger
// tagged with its name so a single gift's lifecycle can be followed across
// the coordinator, the orchestrator, and the background jobs.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// samplerN keeps one in N info-and-below lines when sampling is on.
const samplerN = 5

// New builds the root logger. format selects "json" or human-readable
// console output; level filters below the given zerolog level; sampled
// thins high-volume output.
func New(level int, format string, sampled bool) zerolog.Logger {
	root := zerolog.New(output(format)).
		Level(zerolog.Level(level)).
		With().
		Timestamp().
		Logger()

	if sampled {
		root = root.Sample(&zerolog.BasicSampler{N: samplerN})
	}
	return root
}

// ForComponent derives a sub-logger whose every line carries the component
// name. Components never log through the root directly.
func ForComponent(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

func output(format string) io.Writer {
	if format == "json" {
		return os.Stdout
	}
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
}
