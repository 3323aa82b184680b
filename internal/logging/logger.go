package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Iron-Ham/moddirector/internal/errors"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the file written inside the log directory.
const LogFileName = "director.log"

// Attribute keys written by the director-facing helpers.
const (
	KeyComponent = "component"
	KeySubsystem = "subsystem"
	KeyMod       = "mod"
	KeySeverity  = "severity"
	KeyError     = "error"
)

// syncCloser is satisfied by *os.File and *RotatingWriter.
type syncCloser interface {
	Sync() error
	Close() error
}

// Logger provides structured logging with context propagation.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	mu     *sync.Mutex // Protects out; shared with child loggers
	out    *syncCloser // Shared with child loggers so Close is seen by all
	attrs  []slog.Attr // Persistent attributes (component, subsystem, mod)
	path   string
}

// NewLogger creates a new Logger that writes JSON-formatted logs to
// {logDir}/director.log.
//
// The level parameter controls which messages are logged:
//   - DEBUG: All messages
//   - INFO: Info, Warn, and Error messages
//   - WARN: Warn and Error messages
//   - ERROR: Only Error messages
//
// If logDir is empty, logs will be written to stderr.
func NewLogger(logDir string, level string) (*Logger, error) {
	if logDir == "" {
		return NewWriterLogger(os.Stderr, level), nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return newLogger(file, file, level, logPath), nil
}

// NewLoggerWithRotation is like NewLogger but rotates director.log once it
// grows past config.MaxSizeMB.
func NewLoggerWithRotation(logDir string, level string, config RotationConfig) (*Logger, error) {
	if logDir == "" {
		return NewWriterLogger(os.Stderr, level), nil
	}

	rw, err := NewRotatingWriter(filepath.Join(logDir, LogFileName), config)
	if err != nil {
		return nil, err
	}

	return newLogger(rw, rw, level, rw.FilePath()), nil
}

// NewWriterLogger creates a Logger writing JSON lines to w. Close does not
// close w.
func NewWriterLogger(w io.Writer, level string) *Logger {
	return newLogger(w, nil, level, "")
}

func newLogger(w io.Writer, out syncCloser, level string, path string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	shared := out
	return &Logger{
		logger: slog.New(slog.NewJSONHandler(w, opts)),
		mu:     &sync.Mutex{},
		out:    &shared,
		attrs:  make([]slog.Attr, 0),
		path:   path,
	}
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelForSeverity maps an error severity onto the slog level scale.
// Critical has no slog counterpart and is written at ERROR.
func levelForSeverity(s errors.Severity) slog.Level {
	switch s {
	case errors.SeverityDebug:
		return slog.LevelDebug
	case errors.SeverityInfo:
		return slog.LevelInfo
	case errors.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// WithComponent returns a new Logger tagging entries with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return l.withAttr(slog.String(KeyComponent, component))
}

// WithSubsystem returns a new Logger tagging entries with a subsystem name.
func (l *Logger) WithSubsystem(subsystem string) *Logger {
	return l.withAttr(slog.String(KeySubsystem, subsystem))
}

// WithMod returns a new Logger tagging entries with the mod being processed.
func (l *Logger) WithMod(name string) *Logger {
	return l.withAttr(slog.String(KeyMod, name))
}

// With returns a new Logger with arbitrary key-value attributes.
// Keys and values are provided as alternating arguments.
// This creates a child logger that inherits all existing attributes.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	newAttrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	newAttrs = append(newAttrs, l.attrs...)

	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		newAttrs = append(newAttrs, slog.Any(key, args[i+1]))
	}

	return l.child(newAttrs)
}

// withAttr creates a new Logger with an additional attribute.
func (l *Logger) withAttr(attr slog.Attr) *Logger {
	newAttrs := make([]slog.Attr, len(l.attrs)+1)
	copy(newAttrs, l.attrs)
	newAttrs[len(l.attrs)] = attr
	return l.child(newAttrs)
}

func (l *Logger) child(attrs []slog.Attr) *Logger {
	return &Logger{
		logger: l.logger,
		mu:     l.mu,
		out:    l.out,
		attrs:  attrs,
		path:   l.path,
	}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

// Log writes msg at the level matching severity, tagged with the component
// and subsystem that produced it.
func (l *Logger) Log(severity errors.Severity, component, subsystem, msg string) {
	l.log(levelForSeverity(severity), msg,
		KeyComponent, component,
		KeySubsystem, subsystem,
		KeySeverity, severity.String(),
	)
}

// LogThrowable is Log with an attached cause.
func (l *Logger) LogThrowable(severity errors.Severity, component, subsystem string, cause error, msg string) {
	var causeText string
	if cause != nil {
		causeText = cause.Error()
	}
	l.log(levelForSeverity(severity), msg,
		KeyComponent, component,
		KeySubsystem, subsystem,
		KeySeverity, severity.String(),
		KeyError, causeText,
	)
}

// log combines persistent attributes with per-call arguments.
func (l *Logger) log(level slog.Level, msg string, args ...any) {
	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	l.logger.Log(context.Background(), level, msg, allArgs...)
}

// Path returns the log file path, or "" when logging to a plain writer.
func (l *Logger) Path() string {
	return l.path
}

// Close flushes and closes the log file. Child loggers share the file, so
// closing any of them closes it for all. Closing twice is a no-op, as is
// closing a logger that writes to stderr or a caller-supplied writer.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := *l.out
	if out == nil {
		return nil
	}
	*l.out = nil

	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// NopLogger returns a Logger that discards all log output.
// Useful for testing or when logging is disabled.
func NopLogger() *Logger {
	return NewWriterLogger(io.Discard, LevelError)
}

// ParseLevel converts a string level to the corresponding constant.
// Returns LevelInfo if the level string is not recognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return LevelDebug
	case LevelInfo:
		return LevelInfo
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
