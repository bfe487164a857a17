// Package logging configures the console logger.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// Setup builds a logger from the configured level and format strings.
// Unknown values fall back to info/text rather than failing: logging
// must never keep the app from starting.
func Setup(w io.Writer, level, format string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Level:           parseLevel(level),
		Formatter:       parseFormat(format),
		ReportTimestamp: false,
		Prefix:          "taskdeck",
	})
	return logger
}

func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func parseFormat(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
