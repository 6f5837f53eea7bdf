// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/andrei-cloud/go_edplug/internal/plugins"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the zerolog logger with the specified debug mode and output format.
func InitLogger(debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	setup(os.Stderr, level, human)
}

// Configure initializes the logger from textual settings such as "debug" and "json".
func Configure(w io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.TrimSpace(strings.ToLower(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch f := strings.TrimSpace(strings.ToLower(format)); f {
	case "", "human":
		setup(w, lvl, true)
	case "json":
		setup(w, lvl, false)
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	return nil
}

func setup(w io.Writer, level zerolog.Level, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano         // always initialize base logger with timestamp.
	base := zerolog.New(w).With().Timestamp().Logger() // initialize base logger.
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339Nano,
		}) // select output format.
	} else {
		log.Logger = base // use JSON logger.
	}
	zerolog.SetGlobalLevel(level)
}

// LogPlugins logs one structured line per registered plugin.
func LogPlugins(records []*plugins.Record) {
	for _, rec := range records {
		ev := log.Debug().
			Str("event", "plugin_state").
			Str("plugin", rec.Identity).
			Str("type", rec.PluginType.Name).
			Str("state", rec.State().String()).
			Str("path", rec.Path)
		if rec.Err != nil {
			ev = ev.AnErr("hook_error", rec.Err)
		}
		ev.Msg("plugin state")
	}
}
