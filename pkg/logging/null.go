package logging

import "context"

// NullLogger discards everything. It is the logger wired in when file
// logging is disabled, so callers never branch on a nil Logger.
type NullLogger struct{}

// NewNullLogger creates a discarding logger
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Debug(ctx context.Context, msg string, fields Fields)            {}
func (l *NullLogger) Info(ctx context.Context, msg string, fields Fields)             {}
func (l *NullLogger) Warn(ctx context.Context, msg string, fields Fields)             {}
func (l *NullLogger) Error(ctx context.Context, msg string, err error, fields Fields) {}

// WithFields returns the receiver; there is nothing to scope
func (l *NullLogger) WithFields(fields Fields) Logger {
	return l
}

// Close is a no-op
func (l *NullLogger) Close() error {
	return nil
}
