package log

import (
	"encoding/json"
	"io"
	"os"
	"sync"
)

// JSONLogger writes trace events as JSON, one record per line. The format
// is self-describing and greppable; prefer FileLogger for long captures.
type JSONLogger struct {
	w      io.Writer
	closer io.Closer
	mu     sync.Mutex
	closed bool
}

// NewJSONLogger creates a JSONLogger writing to w.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{w: w}
}

// NewJSONFileLogger creates a JSONLogger appending to the file at path.
func NewJSONFileLogger(path string) (*JSONLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &JSONLogger{w: f, closer: f}, nil
}

// Log writes the event as one JSON line.
// Encoding errors are ignored; tracing must not disrupt the session.
func (l *JSONLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = l.w.Write(append(data, '\n'))
}

// Close closes the underlying file, if the logger owns one.
// It is safe to call Close multiple times.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Logger = (*JSONLogger)(nil)
