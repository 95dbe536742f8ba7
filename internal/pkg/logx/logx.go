/*
Package logx wraps zerolog with the global logger setup and the small set of
helpers used across the chat server and client.

Development builds log human-readable lines to stderr; every other environment
emits JSON to stdout. Components derive sub-loggers with Component so that each
line carries the subsystem that produced it.
*/
package logx

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls how the global logger is built.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...). Empty means info.
	Level string

	// Pretty switches to the colored console writer.
	Pretty bool

	// Out overrides the destination. Defaults to stdout (stderr when Pretty).
	Out io.Writer
}

// InitGlobalLogger configures the package-level zerolog logger.
// Unknown level names fall back to info.
func InitGlobalLogger(opts Options) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	out := opts.Out
	if out == nil {
		out = os.Stdout
		if opts.Pretty {
			out = os.Stderr
		}
	}

	if opts.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

// evenFields drops a field list that cannot be read as key/value pairs,
// zerolog would otherwise panic on it.
func evenFields(level string, fields []any) []any {
	if len(fields)%2 == 0 {
		return fields
	}

	Logger().Warn().
		Int("fields_count", len(fields)).
		Str("log_level", level).
		Msg("logx: odd number of fields, fields dropped")
	return nil
}

// Debug logs msg at debug level with optional key/value fields.
func Debug(msg string, fields ...any) {
	Logger().Debug().Fields(evenFields("debug", fields)).CallerSkipFrame(1).Msg(msg)
}

// Info logs msg at info level with optional key/value fields.
func Info(msg string, fields ...any) {
	Logger().Info().Fields(evenFields("info", fields)).CallerSkipFrame(1).Msg(msg)
}

// Warn logs msg at warn level with optional key/value fields.
func Warn(msg string, fields ...any) {
	Logger().Warn().Fields(evenFields("warn", fields)).CallerSkipFrame(1).Msg(msg)
}

// Error logs err and msg at error level with optional key/value fields.
func Error(err error, msg string, fields ...any) {
	Logger().Error().Err(err).Fields(evenFields("error", fields)).CallerSkipFrame(1).Msg(msg)
}

// Fatal logs at fatal level and exits the process.
func Fatal(err error, msg string, fields ...any) {
	Logger().Fatal().Err(err).Fields(evenFields("fatal", fields)).CallerSkipFrame(1).Msg(msg)
}
