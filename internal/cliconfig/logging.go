package cliconfig

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Logger builds the process logger. format is "console" for humans or
// "json" for collectors.
func Logger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
