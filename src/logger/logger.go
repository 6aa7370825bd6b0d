package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls Init.
type Options struct {
	Level       string
	LogglyToken string
	Environment string
}

var loggly *LogglyClient

// Init configures the global zerolog logger. With a loggly token every line is
// also shipped to loggly.
func Init(opts Options) {
	levelStr := strings.ToLower(opts.Level)
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
		if levelStr != "" {
			fmt.Printf("Unknown log level '%s', defaulting to 'info'\n", levelStr)
		}
	}

	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}
	if opts.LogglyToken != "" {
		loggly = newLogglyClient(opts.LogglyToken, opts.Environment)
		out = zerolog.MultiLevelWriter(out, loggly)
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Info().Str("level", level.String()).Bool("loggly", loggly != nil).Msg("Logger initialized.")
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

// Close flushes buffered remote log lines.
func Close() {
	if loggly != nil {
		if err := loggly.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "loggly flush: %v\n", err)
		}
	}
}
