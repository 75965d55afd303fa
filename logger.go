package mqtt

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

// LogFields represents key-value pairs for structured logging.
type LogFields map[string]any

// Logger defines the interface the engine logs through.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, fields LogFields)

	// Info logs an info message.
	Info(msg string, fields LogFields)

	// Warn logs a warning message.
	Warn(msg string, fields LogFields)

	// Error logs an error message.
	Error(msg string, fields LogFields)
}

// NoOpLogger discards everything. It is the default logger.
type NoOpLogger struct{}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

// Debug does nothing.
func (*NoOpLogger) Debug(_ string, _ LogFields) {}

// Info does nothing.
func (*NoOpLogger) Info(_ string, _ LogFields) {}

// Warn does nothing.
func (*NoOpLogger) Warn(_ string, _ LogFields) {}

// Error does nothing.
func (*NoOpLogger) Error(_ string, _ LogFields) {}

// StdLogger writes through the standard library log package.
type StdLogger struct {
	logger *log.Logger
}

// NewStdLogger creates a logger writing to w. A nil writer falls back to
// os.Stderr.
func NewStdLogger(w io.Writer) *StdLogger {
	if w == nil {
		w = os.Stderr
	}
	return &StdLogger{logger: log.New(w, "", log.LstdFlags)}
}

// Debug logs a debug message.
func (l *StdLogger) Debug(msg string, fields LogFields) { l.write("DEBUG", msg, fields) }

// Info logs an info message.
func (l *StdLogger) Info(msg string, fields LogFields) { l.write("INFO", msg, fields) }

// Warn logs a warning message.
func (l *StdLogger) Warn(msg string, fields LogFields) { l.write("WARN", msg, fields) }

// Error logs an error message.
func (l *StdLogger) Error(msg string, fields LogFields) { l.write("ERROR", msg, fields) }

func (l *StdLogger) write(level, msg string, fields LogFields) {
	if len(fields) == 0 {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}

	// Stable field order keeps log lines diffable.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	l.logger.Printf("[%s] %s%s", level, msg, b.String())
}
