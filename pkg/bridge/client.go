package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Giovanni-Lovison/VCore/pkg/log"
	"github.com/Giovanni-Lovison/VCore/pkg/transport"
	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// Client errors.
var (
	// ErrNoResponse indicates no reply arrived within the timeout. Callers
	// must treat this as "unknown state", not "error state": the command
	// may or may not have reached the bridge.
	ErrNoResponse = errors.New("no response from bridge")
)

// Client timing defaults.
const (
	// DefaultTimeout is the reply wait timeout.
	DefaultTimeout = 1 * time.Second

	// DefaultPollInterval is the queue poll interval inside WaitResponse.
	// A condition variable would remove the polling; the interval is short
	// enough that the latency cost is below the serial round-trip time.
	DefaultPollInterval = 10 * time.Millisecond
)

// Client turns the fire-and-forget transport into a synchronous-looking
// request/response API. Sends are serialized so concurrent senders never
// interleave bytes of two commands.
type Client struct {
	port      transport.Port
	queue     *transport.Queue
	logger    log.Logger
	sessionID string

	writeMu sync.Mutex

	timeout      time.Duration
	pollInterval time.Duration
}

// NewClient creates a correlation client over port, consuming replies from
// queue. Pass a nil logger to disable tracing.
func NewClient(port transport.Port, queue *transport.Queue, logger log.Logger, sessionID string) *Client {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Client{
		port:         port,
		queue:        queue,
		logger:       logger,
		sessionID:    sessionID,
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
	}
}

// SetTimeout sets the default reply timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Timeout returns the default reply timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// SetPollInterval sets the queue poll interval.
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// Send serializes msg and writes it to the transport with exclusive access.
func (c *Client) Send(msg wire.Message) error {
	data, err := wire.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	_, werr := c.port.Write(data)
	c.writeMu.Unlock()

	if werr != nil {
		c.logger.Log(log.Event{
			Timestamp: time.Now(),
			SessionID: c.sessionID,
			Direction: log.DirectionOut,
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerTransport,
				Message: werr.Error(),
				Context: "send " + msg.Action,
			},
		})
		return fmt.Errorf("failed to send %s: %w", msg.Action, werr)
	}

	c.logger.Log(commandEvent(c.sessionID, &msg))
	return nil
}

// WaitResponse waits for a reply whose action matches the requested action,
// polling the response queue until the timeout elapses. Messages for other
// actions popped during the wait are held aside and requeued at the front,
// in their original relative order, before WaitResponse returns, whether a
// match was found or not.
//
// A timeout of zero or less uses the client default. WaitResponse never
// blocks longer than the timeout plus one poll interval.
//
// Precondition: no other wait for the same action is outstanding.
func (c *Client) WaitResponse(action string, timeout time.Duration) (*wire.Message, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	deadline := time.Now().Add(timeout)

	var held []*wire.Message
	for time.Now().Before(deadline) {
		msg, ok := c.queue.TryPop()
		if !ok {
			time.Sleep(c.pollInterval)
			continue
		}
		if msg.Action == action {
			c.queue.Requeue(held...)
			return msg, nil
		}
		held = append(held, msg)
	}

	c.queue.Requeue(held...)
	return nil, ErrNoResponse
}

// Call sends msg and waits for its reply.
func (c *Client) Call(msg wire.Message, timeout time.Duration) (*wire.Message, error) {
	if err := c.Send(msg); err != nil {
		return nil, err
	}
	return c.WaitResponse(msg.Action, timeout)
}

// commandEvent builds the wire-layer trace event for an outgoing command.
func commandEvent(sessionID string, msg *wire.Message) log.Event {
	payload, _ := json.Marshal(msg)
	return log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: log.DirectionOut,
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			Action:  msg.Action,
			Status:  msg.Status,
			Payload: payload,
		},
	}
}
