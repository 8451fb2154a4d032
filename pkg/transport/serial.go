package transport

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Serial link defaults.
const (
	// DefaultBaudRate is the bridge firmware's fixed baud rate.
	DefaultBaudRate = 115200

	// DefaultReadTimeout bounds a single Read call so the line reader can
	// poll without busy-spinning or blocking shutdown.
	DefaultReadTimeout = 20 * time.Millisecond
)

// bridgeUSBVendorID is the CH340 USB-serial adapter vendor ID used by the
// bridge hardware.
const bridgeUSBVendorID = "1A86"

// ErrNoBridgeFound indicates no bridge adapter was found during discovery.
var ErrNoBridgeFound = errors.New("no bridge adapter found")

// SerialOptions configures a serial port.
type SerialOptions struct {
	// BaudRate defaults to DefaultBaudRate when zero.
	BaudRate int

	// ReadTimeout defaults to DefaultReadTimeout when zero.
	ReadTimeout time.Duration
}

// SerialPort is a Port backed by a real serial device.
type SerialPort struct {
	port serial.Port
	path string
	open atomic.Bool
}

// OpenSerial opens the serial device at path with 8N1 framing.
func OpenSerial(path string, opts SerialOptions) (*SerialPort, error) {
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}

	sp := &SerialPort{port: p, path: path}
	sp.open.Store(true)
	return sp, nil
}

// Path returns the device path the port was opened with.
func (s *SerialPort) Path() string {
	return s.path
}

// IsOpen reports whether the port is open.
func (s *SerialPort) IsOpen() bool {
	return s.open.Load()
}

// Read reads available bytes. Returns (0, nil) when the read timeout
// elapses with no data.
func (s *SerialPort) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

// Write writes p to the device.
func (s *SerialPort) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Close closes the device. Safe to call more than once.
func (s *SerialPort) Close() error {
	if !s.open.CompareAndSwap(true, false) {
		return nil
	}
	return s.port.Close()
}

// Discover returns the device path of the first attached bridge adapter,
// identified by its USB vendor ID.
func Discover() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		if p.IsUSB && strings.EqualFold(p.VID, bridgeUSBVendorID) {
			return p.Name, nil
		}
	}
	return "", ErrNoBridgeFound
}
