package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Marshal encodes a message as one JSON protocol line, including the
// trailing newline that terminates it on the wire.
func Marshal(msg Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeLine parses one protocol line (without its terminator) into a
// message. Leading and trailing whitespace is tolerated. Unknown actions
// decode successfully; correlation is by action value, so the decoder must
// not discard actions it does not recognize.
func DecodeLine(line string) (Message, error) {
	line = strings.TrimSpace(line)

	var msg Message
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return Message{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}
