package ports

import "strings"

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug covers per-frame and per-task detail: hints, buffer growth,
	// pool sizing.
	LevelDebug LogLevel = iota
	// LevelInfo covers run milestones: start, topology, totals.
	LevelInfo
	// LevelWarn covers stage warnings and interrupted runs.
	LevelWarn
	// LevelError covers failures that end a run.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a level name, ignoring case. Unknown names map to
// LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet", "off":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger abstracts logging operations with multi-language support.
// The msg parameter is a translatable message key; args fill its verbs.
// Implementations must be safe for concurrent use, since the analysis
// goroutine logs alongside the main loop.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// Enabled reports whether messages at level are written. Callers use it
	// to skip building expensive arguments on hot paths.
	Enabled(level LogLevel) bool

	// WithComponent returns a Logger that prefixes messages with the
	// component name, such as "taskpool" or "softsession".
	WithComponent(component string) Logger
}
