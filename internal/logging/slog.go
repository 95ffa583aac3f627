package logging

import (
	"log/slog"

	"github.com/arloliu/sqlgate/types"
)

// SlogLogger adapts a *slog.Logger to types.Logger.
type SlogLogger struct {
	l *slog.Logger
}

// Compile-time assertion that SlogLogger implements types.Logger.
var _ types.Logger = (*SlogLogger)(nil)

// NewSlogLogger wraps l. A nil l uses slog.Default().
//
// Parameters:
//   - l: The slog logger to write to
//
// Returns:
//   - *SlogLogger: A types.Logger backed by slog
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}

	return &SlogLogger{l: l.With("component", "sqlgate")}
}

// Debug logs at slog.LevelDebug.
func (s *SlogLogger) Debug(msg string, keysAndValues ...any) {
	s.l.Debug(msg, keysAndValues...)
}

// Info logs at slog.LevelInfo.
func (s *SlogLogger) Info(msg string, keysAndValues ...any) {
	s.l.Info(msg, keysAndValues...)
}

// Warn logs at slog.LevelWarn.
func (s *SlogLogger) Warn(msg string, keysAndValues ...any) {
	s.l.Warn(msg, keysAndValues...)
}

// Error logs at slog.LevelError.
func (s *SlogLogger) Error(msg string, keysAndValues ...any) {
	s.l.Error(msg, keysAndValues...)
}
