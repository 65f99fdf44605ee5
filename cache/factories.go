package cache

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/huykn/livecache/codec"
)

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// Debug logs a debug message (no-op).
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info logs an info message (no-op).
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn logs a warning message (no-op).
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error logs an error message (no-op).
func (n *NoOpLogger) Error(msg string, args ...any) {}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

// ConsoleLogger writes one line per message: level, prefix, message and
// key=value pairs.
type ConsoleLogger struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
}

// NewConsoleLogger creates a console logger writing to stdout.
func NewConsoleLogger(prefix string) Logger {
	return NewConsoleLoggerTo(os.Stdout, prefix)
}

// NewConsoleLoggerTo creates a console logger writing to w.
func NewConsoleLoggerTo(w io.Writer, prefix string) Logger {
	return &ConsoleLogger{out: w, prefix: prefix}
}

// Debug logs a debug message.
func (cl *ConsoleLogger) Debug(msg string, args ...any) { cl.write("DEBUG", msg, args) }

// Info logs an info message.
func (cl *ConsoleLogger) Info(msg string, args ...any) { cl.write("INFO", msg, args) }

// Warn logs a warning message.
func (cl *ConsoleLogger) Warn(msg string, args ...any) { cl.write("WARN", msg, args) }

// Error logs an error message.
func (cl *ConsoleLogger) Error(msg string, args ...any) { cl.write("ERROR", msg, args) }

func (cl *ConsoleLogger) write(level, msg string, args []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", level, cl.prefix, msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteByte('\n')

	cl.mu.Lock()
	defer cl.mu.Unlock()
	io.WriteString(cl.out, b.String())
}

// NewMarshaller returns the marshaller for a serialization format.
func NewMarshaller(format string) (Marshaller, error) {
	return codec.ForFormat(format)
}
