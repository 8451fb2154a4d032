package log

// Logger is the interface components use to emit protocol trace events.
// Implementations must be safe for concurrent use; the line reader and the
// caller's goroutine both log.
type Logger interface {
	// Log records a trace event. Implementations should return quickly;
	// blocking here stalls the protocol path.
	Log(event Event)
}

// NoopLogger discards all events. Use when tracing is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
