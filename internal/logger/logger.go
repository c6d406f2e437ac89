// Package logger provides leveled logging for the nasbridge CLI.
//
// Diagnostics go to stderr, separate from the user-facing output that goes
// to stdout, so --verbose never corrupts --json output. Records are produced
// by zerolog and rendered through its console writer.
//
// # Log Levels
//
// Four log levels are supported, in order of severity:
//   - Debug: Detailed information for debugging
//   - Info: General operational information
//   - Warn: Warning conditions that don't prevent operation
//   - Error: Error conditions that affect operation
//
// # Initialization
//
//	logger.Init(verbose)  // verbose=true enables Debug level
//
// By default (verbose=false), only Warn and Error messages are shown.
//
// # Usage
//
//	logger.Debug("Loading env from %s", path)
//	logger.Warn("%d log files match %s, using %s", n, date, name)
//	logger.DebugFields("Telegram send", map[string]interface{}{
//	    "chat_id": 12345,
//	    "chunks":  2,
//	})
//
// # Output Format
//
//	[LEVEL] YYYY-MM-DD HH:MM:SS message key=value ...
//	[DEBUG] 2026-02-03 10:30:45 Telegram send chat_id=12345 chunks=2
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level represents a logging severity level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

const timeFormat = "2006-01-02 15:04:05"

// Logger wraps a zerolog.Logger whose level and sink can be swapped at runtime.
type Logger struct {
	mu     sync.RWMutex
	level  Level
	output io.Writer
	zl     zerolog.Logger
}

// Global logger instance.
var std = newLogger(LevelWarn, os.Stderr)

func newLogger(level Level, w io.Writer) *Logger {
	l := &Logger{level: level, output: w}
	l.rebuild()
	return l
}

// rebuild must be called with mu held for writing.
func (l *Logger) rebuild() {
	cw := zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(l.output),
		NoColor:    true,
		TimeFormat: timeFormat,
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			zerolog.MessageFieldName,
		},
		FormatLevel: func(i interface{}) string {
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
	}
	l.zl = zerolog.New(cw).Level(l.level.zerolog()).With().Timestamp().Logger()
}

// Init initializes the global logger with the specified verbosity.
// When verbose is true, Debug and Info levels are enabled.
// When verbose is false, only Warn and Error are shown.
func Init(verbose bool) {
	if verbose {
		SetLevel(LevelDebug)
	} else {
		SetLevel(LevelWarn)
	}
}

// SetLevel sets the minimum log level for the global logger.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
	std.rebuild()
}

// SetOutput sets the output destination for the global logger.
// A nil writer restores the default, os.Stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	std.mu.Lock()
	defer std.mu.Unlock()
	std.output = w
	std.rebuild()
}

// GetLevel returns the current log level.
func GetLevel() Level {
	std.mu.RLock()
	defer std.mu.RUnlock()
	return std.level
}

func (l *Logger) event(level Level) *zerolog.Event {
	l.mu.RLock()
	zl := l.zl
	l.mu.RUnlock()
	return zl.WithLevel(level.zerolog())
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if e := l.event(level); e != nil {
		e.Msgf(format, args...)
	}
}

func (l *Logger) logFields(level Level, msg string, fields map[string]interface{}) {
	e := l.event(level)
	if e == nil {
		return
	}
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msg(msg)
}

// Debug logs a debug message.
// Only shown when verbose mode is enabled.
func Debug(format string, args ...interface{}) {
	std.log(LevelDebug, format, args...)
}

// Info logs an informational message.
// Only shown when verbose mode is enabled.
func Info(format string, args ...interface{}) {
	std.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	std.log(LevelWarn, format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	std.log(LevelError, format, args...)
}

// DebugFields logs a debug message with structured fields.
func DebugFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelDebug, msg, fields)
}

// InfoFields logs an informational message with structured fields.
func InfoFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelInfo, msg, fields)
}

// WarnFields logs a warning message with structured fields.
func WarnFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelWarn, msg, fields)
}

// ErrorFields logs an error message with structured fields.
func ErrorFields(msg string, fields map[string]interface{}) {
	std.logFields(LevelError, msg, fields)
}

// LogError logs err with a context message. Nil errors are ignored.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	std.log(LevelError, "%s: %v", msg, err)
}
