// Package logger provides leveled logging for docsync.
// Printf-style Debug/Info/Warn lines are only printed in verbose mode;
// Error is always printed. With returns a structured slog.Logger for
// events that carry job context.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr

	// writeMu serialises writes from printf helpers and slog handlers.
	writeMu sync.Mutex
)

// lockedWriter funnels every write through writeMu.
type lockedWriter struct{}

func (lockedWriter) Write(p []byte) (int, error) {
	writeMu.Lock()
	defer writeMu.Unlock()
	mu.RLock()
	w := output
	mu.RUnlock()
	return w.Write(p)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(prefix, format string, args ...any) {
	fmt.Fprintf(lockedWriter{}, prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	if IsVerbose() {
		printf("[DEBUG] ", format, args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	if IsVerbose() {
		fmt.Fprintf(lockedWriter{}, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	if IsVerbose() {
		printf("[INFO] ", format, args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	if IsVerbose() {
		printf("[WARN] ", format, args...)
	}
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	printf("[ERROR] ", format, args...)
}

// With returns a structured logger carrying the given key/value pairs.
// In verbose mode it emits Debug and above; otherwise Warn and above.
func With(args ...any) *slog.Logger {
	level := slog.LevelWarn
	if IsVerbose() {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(lockedWriter{}, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(args...)
}
