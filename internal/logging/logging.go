package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger from LOG_LEVEL.
// The default only shows errors so the terminal UI stays readable.
func Init() {
	InitWithWriter(os.Stderr)
}

// InitWithWriter is Init with an explicit sink, used by commands that
// redirect logs to a file while a full-screen UI owns the terminal.
func InitWithWriter(w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(LevelFromEnv())
}

// LevelFromEnv maps LOG_LEVEL to a zerolog level.
func LevelFromEnv() zerolog.Level {
	l, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return zerolog.ErrorLevel
	}
	return ParseLevel(l)
}

// ParseLevel accepts the same aliases the deploy scripts use.
func ParseLevel(l string) zerolog.Level {
	switch l {
	case "dev", "development", "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "production", "prod":
		return zerolog.ErrorLevel
	default:
		return zerolog.ErrorLevel
	}
}
