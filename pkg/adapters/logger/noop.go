package logger

import "github.com/user/moviereader/pkg/ports"

// NoopLogger discards every message. Quiet mode, library callers that pass
// no logger, and tests use it.
type NoopLogger struct{}

var discard = &NoopLogger{}

// NewNoop returns the shared no-op logger.
func NewNoop() *NoopLogger {
	return discard
}

func (*NoopLogger) Debug(string, ...interface{}) {}
func (*NoopLogger) Info(string, ...interface{})  {}
func (*NoopLogger) Warn(string, ...interface{})  {}
func (*NoopLogger) Error(string, ...interface{}) {}

// WithComponent returns the same logger; there is nothing to prefix.
func (l *NoopLogger) WithComponent(string) ports.Logger {
	return l
}

var _ ports.Logger = (*NoopLogger)(nil)
