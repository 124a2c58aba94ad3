// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zoff-tech/go-databroker/pkg/config"
)

// New returns a slog.Logger backed by a charmbracelet/log handler writing to w.
func New(w io.Writer, cfg config.LogSettings) (*slog.Logger, error) {
	level := log.InfoLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	formatter := log.TextFormatter
	switch cfg.Format {
	case "", "text":
	case "json":
		formatter = log.JSONFormatter
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "databroker",
	})
	return slog.New(handler), nil
}
