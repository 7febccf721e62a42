package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures a console logger on stderr.
func SetupLogger(debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}

// SetupFileLogger configures a logger writing to path, for commands
// that own the terminal (the TUI). Falls back to a silent logger when
// the file cannot be opened.
func SetupFileLogger(path string, debug bool) (*log.Logger, func()) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return log.New(io.Discard), func() {}
	}
	logger := log.NewWithOptions(f, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	return logger, func() { _ = f.Close() }
}
