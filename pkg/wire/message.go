package wire

import (
	"fmt"
)

// Protocol actions. The firmware echoes the action of every command back in
// its reply.
const (
	// ActionScan rescans the bus for devices.
	ActionScan = "scan"

	// ActionGetDevices enumerates attached devices.
	ActionGetDevices = "get_devices"

	// ActionSelect selects the device to address register transactions to.
	ActionSelect = "select"

	// ActionResume resumes bus traffic.
	ActionResume = "resume"

	// ActionPause pauses bus traffic.
	ActionPause = "pause"

	// ActionGetStatus queries firmware status (uptime, device name).
	ActionGetStatus = "get_status"

	// ActionBulkRW performs a batched register read/write transaction.
	ActionBulkRW = "bulk_rw"
)

// RegisterWrite is one register/value pair in a bulk_rw command.
type RegisterWrite struct {
	Reg   uint8 `json:"reg"`
	Value int   `json:"value"`
}

// Message is one protocol record, command or reply. Only Action is always
// present; the remaining fields depend on the action and direction.
//
// JSON encoding (select reply):
//
//	{"action":"select","status":"OK","name":"uP9512","addr":37}
type Message struct {
	Action string `json:"action"`

	// Status is "OK", "PAUSED", or an error string (replies only).
	Status string `json:"status,omitempty"`

	// Addr is a 7-bit device address (select command and reply).
	Addr *uint8 `json:"addr,omitempty"`

	// Name is the device type reported by a select reply.
	Name string `json:"name,omitempty"`

	// DeviceName is the firmware-reported name in a get_status reply.
	DeviceName string `json:"device_name,omitempty"`

	// Uptime is the firmware uptime in seconds (get_status reply).
	Uptime *int64 `json:"uptime,omitempty"`

	// Devices and Names are parallel lists in an enumeration reply,
	// paired by index.
	Devices []uint8  `json:"devices,omitempty"`
	Names   []string `json:"names,omitempty"`

	// Reads lists register addresses to read (bulk_rw command).
	Reads []uint8 `json:"reads,omitempty"`

	// Writes lists register/value pairs to write (bulk_rw command).
	Writes []RegisterWrite `json:"writes,omitempty"`

	// Values holds the read results, aligned with Reads in request order
	// (bulk_rw reply). Values may exceed one byte for word registers.
	Values []int `json:"values,omitempty"`
}

// Validate checks that the message can be correlated.
func (m *Message) Validate() error {
	if m.Action == "" {
		return fmt.Errorf("message has no action")
	}
	return nil
}

// IsOK reports whether the reply carries status "OK".
func (m *Message) IsOK() bool {
	return m.Status == StatusOK
}

// IsPaused reports whether the reply was rejected because the link is paused.
func (m *Message) IsPaused() bool {
	return m.Status == StatusPaused
}

// WithAddr returns a copy of the message with the addr field set.
func (m Message) WithAddr(addr uint8) Message {
	m.Addr = &addr
	return m
}
