// Package logging builds the process slog.Logger on a charmbracelet/log
// handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

type Config struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// New returns a logger writing through charmbracelet/log. Unknown levels fall
// back to info.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	level, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = charmlog.InfoLevel
	}
	handler := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05.000Z07:00",
		Level:           level,
	})
	if cfg.JSON {
		handler.SetFormatter(charmlog.JSONFormatter)
	} else {
		handler.SetFormatter(charmlog.TextFormatter)
	}
	return slog.New(handler)
}
