// Package logger provides logging implementations.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"
	"github.com/user/vidpipe/pkg/ports"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// ConsoleLogger writes translated messages to the console. Debug and info
// lines go to out, warnings and errors to errOut. Component loggers share
// the parent's lock so lines from the analysis goroutine never interleave
// with the main loop.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	color     bool
	out       io.Writer
	errOut    io.Writer
	mu        *sync.Mutex
}

// NewConsole creates a console logger on stdout and stderr.
// Color output is enabled when stdout is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	l := NewConsoleWriter(level, os.Stdout, os.Stderr)
	l.color = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return l
}

// NewConsoleWriter creates a console logger on the given writers, without
// color.
func NewConsoleWriter(level ports.LogLevel, out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{
		level:  level,
		out:    out,
		errOut: errOut,
		mu:     &sync.Mutex{},
	}
}

func (l *ConsoleLogger) Debug(msg string, args ...any) {
	l.log(ports.LevelDebug, msg, args...)
}

func (l *ConsoleLogger) Info(msg string, args ...any) {
	l.log(ports.LevelInfo, msg, args...)
}

func (l *ConsoleLogger) Warn(msg string, args ...any) {
	l.log(ports.LevelWarn, msg, args...)
}

func (l *ConsoleLogger) Error(msg string, args ...any) {
	l.log(ports.LevelError, msg, args...)
}

// Enabled reports whether level passes the configured threshold.
func (l *ConsoleLogger) Enabled(level ports.LogLevel) bool {
	return level >= l.level && l.level != ports.LevelQuiet
}

// WithComponent returns a logger that prefixes lines with component.
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	c := *l
	c.component = component
	return &c
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	line := l10n.F(msg, args...)
	if l.component != "" {
		prefix := "[" + l.component + "]"
		if l.color {
			prefix = colorCyan + prefix + colorReset
		}
		line = prefix + " " + line
	}

	if l.color {
		switch level {
		case ports.LevelDebug:
			line = colorGray + line + colorReset
		case ports.LevelWarn:
			line = colorYellow + line + colorReset
		case ports.LevelError:
			line = colorRed + line + colorReset
		}
	}

	w := l.out
	if level >= ports.LevelWarn {
		w = l.errOut
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(w, line)
}

var _ ports.Logger = (*ConsoleLogger)(nil)
