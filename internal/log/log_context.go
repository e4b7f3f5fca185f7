package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const timeLayout = "2006-01-02 15:04:05"

// LogContext writes timestamped "[MODULE] message" lines to an optional log
// file, and echoes them to the console in verbose mode.
// A nil *LogContext discards everything, so callers never need to check.
type LogContext struct {
	mu          sync.Mutex
	logFile     *os.File
	logFileName string
	console     io.Writer
	runID       string
}

// NewLogContext creates a log context. logFileName may be empty, in which
// case nothing is written to disk. When verbose is set every entry is also
// written to stderr.
func NewLogContext(logFileName string, verbose bool) (*LogContext, error) {
	lc := &LogContext{runID: uuid.NewString()}
	if verbose {
		lc.console = os.Stderr
	}

	if logFileName != "" {
		if err := os.MkdirAll(filepath.Dir(logFileName), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		lc.logFile = logFile
		lc.logFileName = logFileName
	}

	lc.WriteLog("SYSTEM", "=== Nunu CLI Log Started ===")
	lc.WriteLog("SYSTEM", "Run ID: %s", lc.runID)
	return lc, nil
}

// SetConsole redirects the verbose echo. A nil writer disables it.
func (lc *LogContext) SetConsole(w io.Writer) {
	if lc == nil {
		return
	}
	lc.mu.Lock()
	lc.console = w
	lc.mu.Unlock()
}

// WriteLog writes a log entry with [MODULE] prefix and timestamp
func (lc *LogContext) WriteLog(module string, format string, args ...interface{}) {
	if lc == nil {
		return
	}
	message := fmt.Sprintf(format, args...)
	entry := fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format(timeLayout), module, message)

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.logFile != nil {
		lc.logFile.WriteString(entry)
	}
	if lc.console != nil {
		io.WriteString(lc.console, entry)
	}
}

// RunID identifies this invocation in the log file
func (lc *LogContext) RunID() string {
	if lc == nil {
		return ""
	}
	return lc.runID
}

// GetFileName returns the log file path, or "" when logging to disk is off
func (lc *LogContext) GetFileName() string {
	if lc == nil {
		return ""
	}
	return lc.logFileName
}

// Close writes the trailer and closes the log file
func (lc *LogContext) Close() {
	if lc == nil {
		return
	}
	lc.WriteLog("SYSTEM", "=== Nunu CLI Log Ended ===")

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.logFile != nil {
		lc.logFile.Sync()
		lc.logFile.Close()
		lc.logFile = nil
	}
}
