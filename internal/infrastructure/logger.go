package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"freightcli/internal/config"
)

// Process wide logger state. The web server and the analyzer each call
// InitializeLogger once at startup; tests reset it between cases.
var (
	logMu      sync.Mutex
	rootLogger *slog.Logger
	logFile    *os.File
)

// InitializeLogger builds the process logger from cfg and installs it as the
// slog default. Only the first call has an effect.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logMu.Lock()
	defer logMu.Unlock()
	if rootLogger != nil {
		return rootLogger, nil
	}

	w, f, err := logWriter(cfg)
	if err != nil {
		return nil, err
	}
	logFile = f
	rootLogger = newLogger(w, cfg.Format, cfg.Level)
	slog.SetDefault(rootLogger)
	return rootLogger, nil
}

// GetLogger returns the process logger, or slog.Default() before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	if rootLogger == nil {
		return slog.Default()
	}
	return rootLogger
}

// logWriter opens the configured destination. The file is returned
// separately so CloseLogFile can release it.
func logWriter(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	out := strings.ToLower(cfg.Output)
	if out != "file" && out != "both" {
		return os.Stderr, nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}
	if out == "both" {
		return io.MultiWriter(os.Stderr, f), f, nil
	}
	return f, f, nil
}

// NewJSONLogger builds a JSON logger on w that stamps trace_id and run_id
// from the context onto every record.
func NewJSONLogger(w io.Writer, level string) *slog.Logger {
	return newLogger(w, "json", level)
}

func newLogger(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLogLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "text") {
		opts.AddSource = false
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(idHandler{h})
}

// idHandler adds the context ids to each record.
type idHandler struct {
	slog.Handler
}

func (h idHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(contextAttrs(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h idHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return idHandler{h.Handler.WithAttrs(attrs)}
}

func (h idHandler) WithGroup(name string) slog.Handler {
	return idHandler{h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		level = "warn"
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting drops the process logger so the next
// InitializeLogger call builds a new one.
func ResetLoggerForTesting() {
	CloseLogFile()
	logMu.Lock()
	rootLogger = nil
	logMu.Unlock()
}
