package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	Configure(os.Getenv("ENVIRONMENT"))
}

// Configure switches between human-readable output for development and JSON for
// everything else.
func Configure(environment string) {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if strings.EqualFold(environment, "development") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}
	log = zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Logger exposes the underlying zerolog logger for structured call sites.
func Logger() *zerolog.Logger {
	return &log
}

func Info(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

// Fatal logs and exits.
func Fatal(format string, v ...interface{}) {
	log.Fatal().Msgf(format, v...)
}
