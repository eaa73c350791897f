// Package logger is the process wide structured logger used by every gmm package.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// OutputFormat selects the slog handler.
type OutputFormat string

// Supported output formats.
const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// Fields is a set of structured attributes attached to a log line.
type Fields map[string]interface{}

var (
	mu       sync.Mutex
	logger   *slog.Logger
	level    = new(slog.LevelVar)
	format   = FormatText
	override io.Writer
)

// SetTestOutput redirects log output, typically to a buffer in tests.
func SetTestOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	override = w
	logger = nil
}

// UnsetTestOutput restores the default output.
func UnsetTestOutput() {
	mu.Lock()
	defer mu.Unlock()
	override = nil
	logger = nil
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger initializes the global logger with the given level and format.
// Logs go to stderr so that command output on stdout stays machine readable.
func InitLogger(logLevel string, outputFormat OutputFormat) {
	mu.Lock()
	defer mu.Unlock()
	level.Set(ParseLevel(logLevel))
	format = outputFormat
	logger = build()
}

// SetOutputFormat switches the handler while keeping the current level.
func SetOutputFormat(outputFormat OutputFormat) {
	mu.Lock()
	defer mu.Unlock()
	format = outputFormat
	logger = build()
}

// SetLevel changes the minimum level of the current logger.
func SetLevel(logLevel string) {
	level.Set(ParseLevel(logLevel))
}

func build() *slog.Logger {
	var out io.Writer = os.Stderr
	if override != nil {
		out = override
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// GetLogger returns the configured logger, creating an info level text
// logger on first use.
func GetLogger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = build()
	}
	return logger
}

// Info logs an info message.
func Info(msg string, fields ...Fields) {
	GetLogger().Info(msg, mergeFields(fields...)...)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	GetLogger().Info(fmt.Sprintf(format, args...))
}

// Debug logs a debug message.
func Debug(msg string, fields ...Fields) {
	GetLogger().Debug(msg, mergeFields(fields...)...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	GetLogger().Debug(fmt.Sprintf(format, args...))
}

// DebugfWithFields logs a formatted debug message with fields.
func DebugfWithFields(fields Fields, format string, args ...interface{}) {
	GetLogger().Debug(fmt.Sprintf(format, args...), mergeFields(fields)...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...Fields) {
	GetLogger().Warn(msg, mergeFields(fields...)...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	GetLogger().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func Error(msg string, fields ...Fields) {
	GetLogger().Error(msg, mergeFields(fields...)...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	GetLogger().Error(fmt.Sprintf(format, args...))
}

// Success logs an info message tagged with status=success.
func Success(msg string, fields ...Fields) {
	attrs := append(mergeFields(fields...), "status", "success")
	GetLogger().Info(msg, attrs...)
}

// Successf logs a formatted success message.
func Successf(format string, args ...interface{}) {
	GetLogger().Info(fmt.Sprintf(format, args...), "status", "success")
}

// mergeFields flattens field maps into slog key/value pairs. Later maps win
// on duplicate keys.
func mergeFields(fields ...Fields) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	merged := Fields{}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	out := make([]interface{}, 0, len(merged)*2)
	for k, v := range merged {
		out = append(out, k, v)
	}
	return out
}
