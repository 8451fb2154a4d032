package transport

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Giovanni-Lovison/VCore/pkg/log"
	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// Line reader timing.
const (
	// DefaultPollInterval is the idle sleep between read polls.
	DefaultPollInterval = 2 * time.Millisecond

	// disconnectedIdle is the sleep while the port reports no open link.
	disconnectedIdle = 100 * time.Millisecond

	// StopGraceTimeout bounds how long Stop waits for the reader goroutine.
	StopGraceTimeout = 500 * time.Millisecond

	// readChunkSize is the per-poll read buffer size.
	readChunkSize = 512
)

// LineReader continuously drains the port on its own goroutine, splits the
// byte stream on line boundaries, parses each line as a protocol message
// and pushes valid messages onto the queue. Malformed lines are logged and
// dropped; transport errors are logged and treated as transient.
type LineReader struct {
	port      Port
	queue     *Queue
	logger    log.Logger
	sessionID string

	pollInterval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewLineReader creates a reader feeding queue from port.
// Pass a nil logger to disable tracing.
func NewLineReader(port Port, queue *Queue, logger log.Logger, sessionID string) *LineReader {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &LineReader{
		port:         port,
		queue:        queue,
		logger:       logger,
		sessionID:    sessionID,
		pollInterval: DefaultPollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// SetPollInterval overrides the idle poll interval. Call before Start.
func (r *LineReader) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

// Start launches the reader goroutine.
func (r *LineReader) Start() {
	go r.run()
}

// Stop signals the reader to stop and waits for it with a bounded grace
// timeout. Safe to call more than once.
func (r *LineReader) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	select {
	case <-r.done:
	case <-time.After(StopGraceTimeout):
	}
}

func (r *LineReader) run() {
	defer close(r.done)

	chunk := make([]byte, readChunkSize)
	var buf string

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		if !r.port.IsOpen() {
			r.sleep(disconnectedIdle)
			continue
		}

		n, err := r.port.Read(chunk)
		if err != nil {
			r.logger.Log(log.Event{
				Timestamp: time.Now(),
				SessionID: r.sessionID,
				Direction: log.DirectionIn,
				Layer:     log.LayerTransport,
				Category:  log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerTransport,
					Message: err.Error(),
					Context: "port read",
				},
			})
			r.sleep(r.pollInterval)
			continue
		}
		if n == 0 {
			r.sleep(r.pollInterval)
			continue
		}

		// Permissive decode: invalid byte sequences are replaced, never fatal.
		buf += strings.ToValidUTF8(string(chunk[:n]), string(utf8.RuneError))
		buf = r.drainLines(buf)
	}
}

// drainLines parses every complete line in buf and returns the unconsumed
// remainder.
func (r *LineReader) drainLines(buf string) string {
	for {
		i := strings.IndexByte(buf, '\n')
		if i < 0 {
			return buf
		}
		line := strings.TrimSpace(buf[:i])
		buf = buf[i+1:]
		if line == "" {
			continue
		}

		msg, err := wire.DecodeLine(line)
		if err != nil {
			r.logger.Log(parseErrorEvent(r.sessionID, line, err))
			continue
		}

		r.logger.Log(messageEvent(r.sessionID, log.DirectionIn, &msg))
		r.queue.Push(&msg)
	}
}

// sleep waits for d or until the reader is stopped.
func (r *LineReader) sleep(d time.Duration) {
	select {
	case <-r.stop:
	case <-time.After(d):
	}
}

// messageEvent builds a wire-layer trace event for a protocol message.
func messageEvent(sessionID string, dir log.Direction, msg *wire.Message) log.Event {
	payload, _ := json.Marshal(msg)
	return log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: dir,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			Action:  msg.Action,
			Status:  msg.Status,
			Payload: payload,
		},
	}
}

// parseErrorEvent builds a transport-layer trace event for a dropped line.
func parseErrorEvent(sessionID, line string, err error) log.Event {
	data := []byte(line)
	truncated := false
	if len(data) > log.MaxLineDataSize {
		data = data[:log.MaxLineDataSize]
		truncated = true
	}
	return log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Line: &log.LineEvent{
			Size:      len(line),
			Data:      data,
			Truncated: truncated,
		},
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: "line parse",
		},
	}
}
