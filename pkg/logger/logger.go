package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LogLevel names the levels accepted in settings files and flags.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog with component scoping and intention helpers.
type Logger struct {
	*slog.Logger
	file *os.File
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger writes plain console lines to stderr.
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter writes plain console lines to w. A nil writer
// discards everything, which is what most tests want.
func NewLoggerWithWriter(level LogLevel, w io.Writer) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{Logger: slog.New(newConsoleHandler(w, level.slogLevel()))}
}

// NewLoggerWithFile fans records out to the console writer and to a
// timestamped text log appended at path. If the file cannot be opened the
// console logger is returned alone. The caller owns the file: Close it.
// Loggers derived with WithComponent or WithRun share it but do not own it.
func NewLoggerWithFile(level LogLevel, console io.Writer, path string) *Logger {
	if console == nil {
		console = os.Stderr
	}
	lvl := level.slogLevel()
	consoleSink := newConsoleHandler(console, lvl)
	if path == "" {
		return &Logger{Logger: slog.New(consoleSink)}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &Logger{Logger: slog.New(consoleSink)}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &Logger{Logger: slog.New(consoleSink)}
	}
	fileSink := slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.TimeOnly))
			}
			return a
		},
	})
	return &Logger{Logger: slog.New(newFanout(consoleSink, fileSink)), file: f}
}

// Close syncs and closes the log file, if this logger opened one.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WithComponent scopes the logger to a package or subsystem.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.With("component", component)}
}

// WithRun tags every line with a training run id.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{Logger: l.With("run", runID)}
}

func (l *Logger) logWithIntention(level slog.Level, intention Intention, msg string, args ...any) {
	kv := append([]any{"intention", string(intention)}, args...)
	l.Log(context.Background(), level, msg, kv...)
}

func (l *Logger) InfoWithIntention(intention Intention, msg string, args ...any) {
	l.logWithIntention(slog.LevelInfo, intention, msg, args...)
}

func (l *Logger) DebugWithIntention(intention Intention, msg string, args ...any) {
	l.logWithIntention(slog.LevelDebug, intention, msg, args...)
}

// Warnings and errors are emphasised by level; the intention is dropped.
func (l *Logger) WarnWithIntention(_ Intention, msg string, args ...any) {
	l.Warn(msg, args...)
}

func (l *Logger) ErrorWithIntention(_ Intention, msg string, args ...any) {
	l.Error(msg, args...)
}

// Default is the process-wide logger used when a component is not handed one.
var Default = NewLogger(LogLevelInfo)

// SetGlobalLogger replaces Default.
func SetGlobalLogger(l *Logger) {
	if l != nil {
		Default = l
	}
}

// NewComponentLogger derives a component logger from Default.
func NewComponentLogger(component string) *Logger {
	return Default.WithComponent(component)
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return NewLoggerWithWriter(LogLevelError, io.Discard)
}
