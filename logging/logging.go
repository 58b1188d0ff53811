// Package logging wires up the process-wide message logger: an
// append-mode file backend plus an optional colorized stderr backend,
// driven by github.com/op/go-logging.
package logging

import (
	"fmt"
	stdlog "log"
	"os"
	"path"
	"path/filepath"

	"github.com/op/go-logging"

	"github.com/hathitrust/feed/config"
)

// New creates and returns a logger suitable for human-readable process
// logs. The log file lives in cfg.LogDirectory() (LogDir, or
// Staging.Ingest/logs when LogDir is unset), named after the running
// binary.
func New(cfg *config.Config) (*logging.Logger, string) {
	processName := path.Base(os.Args[0])
	logDir := cfg.LogDirectory()
	if logDir != "" {
		_ = os.MkdirAll(logDir, 0755)
	}
	filename := filepath.Join(logDir, fmt.Sprintf("%s.log", processName))

	writer, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open log file %q: %v\n", filename, err)
		os.Exit(1)
	}

	log := logging.MustGetLogger(processName)
	format := logging.MustStringFormatter("%{time} [%{level}] %{message}")
	logging.SetFormatter(format)
	level := logging.INFO
	if cfg.LogLevel != "" {
		if parsed, err := logging.LogLevel(cfg.LogLevel); err == nil {
			level = parsed
		}
	}
	logging.SetLevel(level, processName)

	fileBackend := logging.NewLogBackend(writer, "", 0)
	if cfg.LogToStderr {
		stderrBackend := logging.NewLogBackend(os.Stderr, "", stdlog.LstdFlags|stdlog.Lshortfile)
		stderrBackend.Color = true
		logging.SetBackend(fileBackend, stderrBackend)
	} else {
		logging.SetBackend(fileBackend)
	}

	return log, filename
}

// Discard returns a logger that writes nowhere, for use in tests.
func Discard(module string) *logging.Logger {
	log := logging.MustGetLogger(module)
	devnull := logging.NewLogBackend(devnullWriter{}, "", 0)
	logging.SetBackend(devnull)
	logging.SetLevel(logging.CRITICAL, module)
	return log
}

type devnullWriter struct{}

func (devnullWriter) Write(p []byte) (int, error) { return len(p), nil }
