package log

import (
	"encoding/json"
	"time"
)

// Event is one protocol trace record. CBOR encoding uses integer keys for
// compactness; the JSON tags serve the JSONLogger's record-per-line format.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint" json:"ts"`

	// SessionID identifies the bridge session (UUID, assigned at open).
	SessionID string `cbor:"2,keyasint,omitempty" json:"session,omitempty"`

	// Direction indicates message flow relative to the host.
	Direction Direction `cbor:"3,keyasint" json:"dir"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint" json:"layer"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint" json:"category"`

	// Type-specific payload. Exactly one is set, except that Line
	// accompanies Error when a malformed line is dropped.
	Line        *LineEvent        `cbor:"10,keyasint,omitempty" json:"line,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty" json:"message,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty" json:"state,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty" json:"error,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message received from the bridge.
	DirectionIn Direction = 0
	// DirectionOut indicates a command sent to the bridge.
	DirectionOut Direction = 1
	// DirectionLocal indicates an event with no wire traffic, such as a
	// session state change.
	DirectionLocal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionLocal:
		return "LOCAL"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the raw line layer (undecoded bytes).
	LayerTransport Layer = 0
	// LayerWire is the message layer (decoded JSON records).
	LayerWire Layer = 1
	// LayerSession is the session layer (pause/resume/selection state).
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol command or reply.
	CategoryMessage Category = 0
	// CategoryState indicates a session state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LineEvent captures a raw transport line, used when a line cannot be
// decoded and is about to be dropped.
type LineEvent struct {
	// Size is the line length in bytes before truncation.
	Size int `cbor:"1,keyasint" json:"size"`

	// Data is the raw line (may be truncated).
	Data []byte `cbor:"2,keyasint,omitempty" json:"data,omitempty"`

	// Truncated indicates Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty" json:"truncated,omitempty"`
}

// MaxLineDataSize is the maximum raw line length recorded in a LineEvent.
const MaxLineDataSize = 512

// MessageEvent captures a decoded protocol message.
type MessageEvent struct {
	// Action is the message's action field.
	Action string `cbor:"1,keyasint" json:"action"`

	// Status is the reply status, if any.
	Status string `cbor:"2,keyasint,omitempty" json:"status,omitempty"`

	// Payload is the full JSON-encoded message record.
	Payload json.RawMessage `cbor:"3,keyasint,omitempty" json:"payload,omitempty"`
}

// StateChangeEvent captures session state transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint" json:"entity"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty" json:"old,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint" json:"new"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty" json:"reason,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink indicates the paused/active link state.
	StateEntityLink StateEntity = 0
	// StateEntitySelection indicates the selected-device state.
	StateEntitySelection StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntitySelection:
		return "SELECTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint" json:"layer"`

	// Message is the error message.
	Message string `cbor:"2,keyasint" json:"message"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty" json:"context,omitempty"`
}
