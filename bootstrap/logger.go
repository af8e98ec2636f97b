package bootstrap

import (
	"io"
	"os"
	"time"

	"github.com/artpar/calloutlint/config"
	"github.com/rs/zerolog"
)

// SetupLogger builds the process logger and sets the global level. Output
// defaults to stderr so command output on stdout stays machine-readable.
func SetupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
