package types

// Logger is the structured logger used by sqlgate.
//
// Messages carry alternating key-value pairs, the convention shared by
// zap.SugaredLogger and log/slog. Implementations must be safe for
// concurrent use.
type Logger interface {
	// Debug logs verbose operational detail.
	Debug(msg string, keysAndValues ...any)

	// Info logs significant lifecycle events.
	Info(msg string, keysAndValues ...any)

	// Warn logs recoverable problems.
	Warn(msg string, keysAndValues ...any)

	// Error logs failures that need attention.
	Error(msg string, keysAndValues ...any)
}
