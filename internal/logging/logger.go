// Package logging provides a leveled logger with an optional file sink.
// When stdout is not a terminal (nohup, cron, redirected output) console
// printing is suppressed unless verbose, while the file sink keeps the
// full record.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	background bool
	verbose    bool
}

type Options struct {
	// LogFile is the file sink path. Empty disables the sink.
	LogFile string
	// Verbose forces console output even in background mode and enables
	// Debug lines.
	Verbose bool
}

// New opens the file sink (if configured) and detects background mode.
// Call Close when done if LogFile was set.
func New(opts Options) (*Logger, error) {
	l := &Logger{
		background: !isTerminal(os.Stdout) || os.Getenv("NOHUP") != "",
		verbose:    opts.Verbose,
	}
	if opts.LogFile != "" {
		dir := filepath.Dir(opts.LogFile)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", opts.LogFile, err)
		}
		l.file = f
		l.filePath = opts.LogFile
	}
	return l, nil
}

// DefaultLogPath names a timestamped log file in the working directory.
func DefaultLogPath() string {
	return fmt.Sprintf("scenesync_%s.log", time.Now().Format("20060102_150405"))
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// Background reports whether output is not a live terminal.
func (l *Logger) Background() bool {
	return l.background
}

// Path returns the file sink path, or empty when no sink is open.
func (l *Logger) Path() string {
	return l.filePath
}

// Close closes the file sink if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	plain := ts + " [" + level + "] " + text + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.background || l.verbose {
		out := os.Stdout
		if level == "ERROR" {
			out = os.Stderr
		}
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.line("INFO", fmt.Sprintf(format, args...))
}

func (l *Logger) Success(format string, args ...any) {
	l.line("SUCCESS", fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.line("WARN", fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.line("ERROR", fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", fmt.Sprintf(format, args...))
}
