package logger

import "github.com/user/vidpipe/pkg/ports"

// NoopLogger discards all messages. Tests and quiet mode use it.
type NoopLogger struct{}

// NewNoop creates a new no-op logger.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...any) {}

func (l *NoopLogger) Info(msg string, args ...any) {}

func (l *NoopLogger) Warn(msg string, args ...any) {}

func (l *NoopLogger) Error(msg string, args ...any) {}

// Enabled is always false.
func (l *NoopLogger) Enabled(level ports.LogLevel) bool {
	return false
}

// WithComponent returns the same no-op logger.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}

var _ ports.Logger = (*NoopLogger)(nil)
