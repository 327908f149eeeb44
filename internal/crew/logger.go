package crew

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

// DebugLogger provides file-backed trace logging for crew runs.
type DebugLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDebugLogger creates a logger writing to the specified path. If the
// path is empty, returns a no-op logger. Creates parent directories if
// they don't exist.
func NewDebugLogger(logPath string) (*DebugLogger, error) {
	if logPath == "" {
		return &DebugLogger{}, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	logger := &DebugLogger{file: f}
	logger.Log("=== Crew Debug Log Started at %s ===", time.Now().Format(time.RFC3339))
	return logger, nil
}

// NopLogger returns a no-op logger for testing or when logging is disabled.
func NopLogger() *DebugLogger {
	return &DebugLogger{}
}

// Log writes a timestamped message to the debug log. If the logger is nil
// or has no file, this is a no-op.
func (l *DebugLogger) Log(format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, args...)
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, msg)
	l.file.Sync()
}

// Close closes the log file. Safe on a nil or no-op logger.
func (l *DebugLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// runLogger prints user-facing run progress. Live dispatch lines are bold
// magenta, replay lines bold blue.
type runLogger struct {
	verbose   bool
	working   *color.Color
	replaying *color.Color
}

func newRunLogger(verbose bool) *runLogger {
	return &runLogger{
		verbose:   verbose,
		working:   color.New(color.FgMagenta, color.Bold),
		replaying: color.New(color.FgBlue, color.Bold),
	}
}

// Working announces the acting agent and task being dispatched.
func (l *runLogger) Working(role, description string, replay bool) {
	if l == nil || !l.verbose {
		return
	}
	c := l.working
	verb := "Starting Task"
	if replay {
		c = l.replaying
		verb = "Replaying Task"
	}
	c.Printf("[%s] %s: %s\n", role, verb, description)
}

// Completed announces a flushed task result.
func (l *runLogger) Completed(role, taskID string) {
	if l == nil || !l.verbose {
		return
	}
	fmt.Printf("[%s] Task %s completed\n", role, taskID)
}
