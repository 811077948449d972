// Package logging provides a leveled, optionally colored logger with an
// optional append-only file sink. A nil *Logger discards everything, so
// library packages can take one as an optional dependency.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"photoconv/config"
)

type palette struct {
	red, green, yellow, blue, cyan, reset string
}

var ansi = palette{
	red:    "\033[1;91m",
	green:  "\033[1;92m",
	yellow: "\033[1;93m",
	blue:   "\033[1;94m",
	cyan:   "\033[1;96m",
	reset:  "\033[0m",
}

type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	colors  palette
	verbose bool
	file    *os.File
}

// NewLogger builds a logger from cfg and opens cfg.LogFile when set.
// Call Close when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	l := &Logger{
		out:     os.Stdout,
		errOut:  os.Stderr,
		verbose: cfg.Verbose,
	}
	// A worker process owns stdout for frames.
	if cfg.ServeWorker {
		l.out = os.Stderr
	}

	enable := false
	switch cfg.Color {
	case config.ColorAlways:
		enable = true
	case config.ColorAuto:
		enable = isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "" && strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
	if enable {
		l.colors = ansi
	}

	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// NewWriterLogger logs uncolored lines of every level to w.
func NewWriterLogger(w io.Writer, verbose bool) *Logger {
	return &Logger{out: w, errOut: w, verbose: verbose}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) Verbose() bool {
	return l != nil && l.verbose
}

func (l *Logger) line(level, color, text string) {
	if l == nil {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	plain := ts + " [" + level + "] " + text + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.out
	if level == "ERROR" {
		out = l.errOut
	}
	if color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+l.colors.reset+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.line("INFO", l.colors.blue, fmt.Sprintf(format, args...))
}

func (l *Logger) Success(format string, args ...any) {
	if l == nil {
		return
	}
	l.line("SUCCESS", l.colors.green, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.line("WARN", l.colors.yellow, fmt.Sprintf(format, args...))
}

// Error also goes to stderr.
func (l *Logger) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.line("ERROR", l.colors.red, fmt.Sprintf(format, args...))
}

// Debug is a no-op unless the logger is verbose.
func (l *Logger) Debug(format string, args ...any) {
	if !l.Verbose() {
		return
	}
	l.line("DEBUG", l.colors.cyan, fmt.Sprintf(format, args...))
}
