package transport

import (
	"bytes"
	"math/rand"
	"sync"
	"time"

	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// MockPort simulates the bridge firmware for development without hardware.
// It implements the same Port contract as SerialPort: commands written to
// it produce protocol-correct reply lines on the read side.
//
// The simulated bus carries a uP9512 controller at 0x25 and an unrelated
// part at 0x3C, matching a typical board. Register reads return canned
// values with a little jitter so measurements move.
type MockPort struct {
	mu       sync.Mutex
	open     bool
	paused   bool
	selected *uint8
	inbuf    []byte // bytes written by the host, pending line parse
	outbuf   []byte // reply bytes pending host reads
	started  time.Time
	rng      *rand.Rand
}

// NewMockPort creates an open mock bridge in the paused state.
func NewMockPort() *MockPort {
	return &MockPort{
		open:    true,
		paused:  true,
		started: time.Now(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// IsOpen reports whether the mock link is open.
func (m *MockPort) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Read drains pending reply bytes into p. Returns (0, nil) when no reply
// is pending, mirroring a serial read timeout.
func (m *MockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.outbuf) == 0 {
		return 0, nil
	}
	n := copy(p, m.outbuf)
	m.outbuf = m.outbuf[n:]
	return n, nil
}

// Write accepts command bytes and synthesizes replies for each complete
// line received.
func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inbuf = append(m.inbuf, p...)
	for {
		i := bytes.IndexByte(m.inbuf, '\n')
		if i < 0 {
			break
		}
		line := string(m.inbuf[:i])
		m.inbuf = m.inbuf[i+1:]

		cmd, err := wire.DecodeLine(line)
		if err != nil {
			continue // firmware ignores garbage input
		}
		if reply := m.handle(cmd); reply != nil {
			if data, err := wire.Marshal(*reply); err == nil {
				m.outbuf = append(m.outbuf, data...)
			}
		}
	}
	return len(p), nil
}

// Close closes the mock link.
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}

// handle produces the firmware reply for one command. Caller holds mu.
func (m *MockPort) handle(cmd wire.Message) *wire.Message {
	switch cmd.Action {
	case wire.ActionGetDevices, wire.ActionScan:
		return &wire.Message{
			Action:  cmd.Action,
			Devices: []uint8{0x25, 0x3C},
			Names:   []string{"uP9512", "SSD1306"},
		}

	case wire.ActionResume:
		m.paused = false
		return &wire.Message{Action: wire.ActionResume, Status: wire.StatusOK}

	case wire.ActionPause:
		m.paused = true
		return &wire.Message{Action: wire.ActionPause, Status: wire.StatusOK}

	case wire.ActionSelect:
		if cmd.Addr == nil {
			return &wire.Message{Action: wire.ActionSelect, Status: "ERROR"}
		}
		addr := *cmd.Addr
		m.selected = &addr
		name := "SSD1306"
		if addr == 0x25 {
			name = "uP9512"
		}
		reply := wire.Message{
			Action: wire.ActionSelect,
			Status: wire.StatusOK,
			Name:   name,
		}
		return ptr(reply.WithAddr(addr))

	case wire.ActionGetStatus:
		uptime := int64(time.Since(m.started).Seconds())
		return &wire.Message{
			Action:     wire.ActionGetStatus,
			Status:     wire.StatusOK,
			Uptime:     &uptime,
			DeviceName: "vcore-bridge",
		}

	case wire.ActionBulkRW:
		if m.paused {
			return &wire.Message{Action: wire.ActionBulkRW, Status: wire.StatusPaused}
		}
		if len(cmd.Writes) > 0 && len(cmd.Reads) == 0 {
			return &wire.Message{Action: wire.ActionBulkRW, Status: wire.StatusOK}
		}
		values := make([]int, len(cmd.Reads))
		for i, reg := range cmd.Reads {
			values[i] = m.registerValue(reg)
		}
		return &wire.Message{
			Action: wire.ActionBulkRW,
			Status: wire.StatusOK,
			Values: values,
		}
	}
	return nil
}

// registerValue returns the canned value for one register read on the
// currently selected device. Caller holds mu.
func (m *MockPort) registerValue(reg uint8) int {
	if m.selected == nil || *m.selected != 0x25 {
		if m.selected != nil && *m.selected == 0x3C {
			return 0x3C
		}
		return 0x42
	}

	// uP9512 register map
	switch reg {
	case 0x35: // per-phase OCL status
		return 0x00
	case 0x3B: // protection indicators + phase monitor
		return 0x04
	case 0x2D: // VOUT ADC, ~1.20 V
		return m.jitter(120, 2)
	case 0x2C: // IOUT ADC
		return m.jitter(9, 2)
	case 0x2E: // temperature
		return m.jitter(79, 1)
	case 0x25: // VR shutdown threshold
		return 0xFE
	case 0x3D: // average IOUT
		return m.jitter(9, 1)
	case 0x3C: // protection enables
		return 0x0F
	case 0x07, 0x08, 0x09: // phase control
		return 0x77
	case 0x23: // total OCP threshold
		return 0x00
	default:
		return 0x00
	}
}

func (m *MockPort) jitter(base, spread int) int {
	v := base + m.rng.Intn(2*spread+1) - spread
	if v < 0 {
		v = 0
	}
	if v > 0xFF {
		v = 0xFF
	}
	return v
}

func ptr(m wire.Message) *wire.Message { return &m }
