// Package logger implements ports.Logger on log/slog.
//
// Terminal output goes through PrettyHandler, without styling when it does not
// reach an interactive terminal, unless the JSON format is selected. A debug file,
// when configured, receives every record at debug level as JSON and is rotated by
// lumberjack.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"go.trai.ch/fsnap/internal/adapters/detector"
	"go.trai.ch/fsnap/internal/core/domain"
	"go.trai.ch/fsnap/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _ ports.Logger = (*Logger)(nil)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	mu     sync.RWMutex
	logger *slog.Logger
	level  *slog.LevelVar
	format string
	mode   detector.OutputMode
	output io.Writer
	file   io.WriteCloser
}

// New creates a Logger writing human-readable output to stderr at info level.
func New() *Logger {
	l := &Logger{
		level:  &slog.LevelVar{},
		output: os.Stderr,
		mode:   detector.DetectEnvironment(os.Stderr),
	}
	l.rebuild()
	return l
}

// Configure applies the log section of the configuration.
func (l *Logger) Configure(cfg domain.LogConfig) error {
	if cfg.Level != "" {
		if err := l.SetLevel(cfg.Level); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.format = cfg.Format
	l.mode = detector.ResolveMode(detector.DetectEnvironment(l.output), l.format)
	if cfg.File != "" {
		_ = l.closeFile()
		l.file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10,
			MaxBackups: 3,
		}
	}
	l.rebuild()
	return nil
}

// SetLevel changes the minimum level of terminal output.
func (l *Logger) SetLevel(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zerr.With(zerr.Wrap(err, "invalid log level"), "level", level)
	}
	l.level.Set(lvl)
	return nil
}

// SetOutput updates the terminal output destination, preserving the configured
// format. If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.mode = detector.ResolveMode(detector.DetectEnvironment(w), l.format)
	l.rebuild()
}

// Close closes the debug file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeFile()
}

func (l *Logger) closeFile() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rebuild replaces the slog logger. Callers hold mu.
func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: l.level}

	var handler slog.Handler
	switch l.mode {
	case detector.ModeJSON:
		handler = slog.NewJSONHandler(l.output, opts)
	case detector.ModePlain:
		handler = NewPlainHandler(l.output, opts)
	default:
		handler = NewPrettyHandler(l.output, opts)
	}

	if l.file != nil {
		handler = &multiHandler{handlers: []slog.Handler{
			handler,
			slog.NewJSONHandler(l.file, &slog.HandlerOptions{Level: slog.LevelDebug}),
		}}
	}
	l.logger = slog.New(handler)
}

// Debug logs a diagnostic message.
func (l *Logger) Debug(msg string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg, args...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg, args...)
}

// Error logs err. Pretty output prints the cause chain with the metadata of
// each error.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.mode == detector.ModeJSON {
		l.logger.Error("operation failed", "error", err)
		return
	}
	l.logger.Error(formatErrorEntries(collectErrorEntries(err)))
}
