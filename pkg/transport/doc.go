// Package transport provides the serial transport layer for the bridge link.
//
// The transport layer handles:
//   - The Port capability interface (real serial port or simulated bridge)
//   - Background line reading and permissive decoding of incoming bytes
//   - The response queue feeding the correlation layer
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      JSON Messages             │
//	├────────────────────────────────┤
//	│   Newline-Delimited Framing    │
//	├────────────────────────────────┤
//	│      Serial (115200 8N1)       │
//	├────────────────────────────────┤
//	│      USB-Serial Adapter        │
//	└────────────────────────────────┘
//
// # Line Reading
//
// The LineReader runs on its own goroutine so that reads never depend on a
// caller being present; back-pressure is absorbed by the unbounded queue.
// Incoming bytes are decoded permissively (invalid sequences replaced),
// accumulated until a line terminator, then parsed. A malformed line is
// logged and dropped without affecting subsequent lines.
//
// # Port Implementations
//
// SerialPort wraps a real serial device via go.bug.st/serial; MockPort
// simulates the bridge firmware for development without hardware. Both
// satisfy the same Port interface and are chosen at construction time.
package transport
