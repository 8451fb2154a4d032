package transport

// Port represents a duplex byte-stream link to the bridge.
// Implemented by SerialPort and MockPort.
type Port interface {
	// IsOpen reports whether the link is open.
	IsOpen() bool

	// Read reads currently available bytes into p. A return of (0, nil)
	// means no bytes were available within the port's read timeout; it is
	// not an error and not end-of-stream.
	Read(p []byte) (int, error)

	// Write writes p to the link.
	Write(p []byte) (int, error)

	// Close closes the link. Pending reads are unblocked.
	Close() error
}

// Compile-time interface satisfaction checks.
var (
	_ Port = (*SerialPort)(nil)
	_ Port = (*MockPort)(nil)
)
