// Package logging builds the single zerolog.Logger each replica threads
// through its constructors. Grounded on cuemby-warren's pkg/log (console vs
// JSON writer selection, RFC3339 timestamps), deliberately NOT reproducing
// its package-level global Logger var: spec §9's "no singletons, each
// component is explicitly threaded" extends to the ambient stack, so New
// returns a value instead of mutating global state.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// New builds a root logger from cfg. Callers derive component loggers with
// logger.With().Str("component", name).Logger() rather than a global.
func New(cfg Config) zerolog.Logger {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}
