package session

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giovanni-Lovison/VCore/pkg/bridge"
	"github.com/Giovanni-Lovison/VCore/pkg/device"
	"github.com/Giovanni-Lovison/VCore/pkg/transport"
	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// stubPort is a scriptable transport double. Commands written to it are
// recorded and answered by handler; a nil handler result means silence.
type stubPort struct {
	mu      sync.Mutex
	closed  bool
	handler func(wire.Message) *wire.Message
	out     []byte
	cmds    []wire.Message
}

func (p *stubPort) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

func (p *stubPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.out) == 0 {
		return 0, nil
	}
	n := copy(buf, p.out)
	p.out = p.out[n:]
	return n, nil
}

func (p *stubPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range bytes.Split(buf, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		msg, err := wire.DecodeLine(string(line))
		if err != nil {
			continue
		}
		p.cmds = append(p.cmds, msg)
		if p.handler == nil {
			continue
		}
		if reply := p.handler(msg); reply != nil {
			data, _ := wire.Marshal(*reply)
			p.out = append(p.out, data...)
		}
	}
	return len(buf), nil
}

func (p *stubPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *stubPort) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.cmds))
	for _, cmd := range p.cmds {
		out = append(out, cmd.Action)
	}
	return out
}

// fastConfig keeps silent-port tests short.
func fastConfig() Config {
	return Config{
		ResponseTimeout: 40 * time.Millisecond,
		EnumAttempts:    3,
		EnumTimeoutStep: 10 * time.Millisecond,
		Backoff:         BackoffConfig{Initial: time.Millisecond, Step: time.Millisecond, Max: 2 * time.Millisecond},
	}
}

func newMockSession(t *testing.T) *Session {
	t.Helper()
	s := New(transport.NewMockPort(), Config{})
	s.Start()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionStartsPaused(t *testing.T) {
	s := New(transport.NewMockPort(), Config{})
	defer s.Close()

	assert.True(t, s.Paused())
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Nil(t, s.Decoder())
	assert.NotEmpty(t, s.ID())
}

func TestPauseResumeStateTracking(t *testing.T) {
	s := newMockSession(t)

	require.NoError(t, s.Resume())
	assert.False(t, s.Paused())

	require.NoError(t, s.Pause())
	assert.True(t, s.Paused())
}

func TestSelectImplicitResume(t *testing.T) {
	s := newMockSession(t)
	require.True(t, s.Paused())

	dec, err := s.Select(0x25)
	require.NoError(t, err)
	assert.Equal(t, device.NameUP9512, dec.DeviceName())
	assert.False(t, s.Paused(), "implicit resume did not happen")

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, DeviceDescriptor{Addr: 0x25, Name: device.NameUP9512}, selected)
	assert.Same(t, dec, s.Decoder())
}

func TestSelectNotAttemptedWhenResumeFails(t *testing.T) {
	port := &stubPort{} // silent: every command times out
	s := New(port, fastConfig())
	s.Start()
	defer s.Close()

	_, err := s.Select(0x25)

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	assert.Equal(t, uint8(0x25), selErr.Addr)
	assert.ErrorIs(t, err, bridge.ErrNoResponse)

	assert.True(t, s.Paused(), "session left paused state on failed resume")
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.NotContains(t, port.actions(), wire.ActionSelect, "select sent despite failed resume")
	assert.Contains(t, port.actions(), wire.ActionResume)
}

func TestSelectRejectedClearsSelection(t *testing.T) {
	port := &stubPort{handler: func(msg wire.Message) *wire.Message {
		switch msg.Action {
		case wire.ActionResume:
			return &wire.Message{Action: wire.ActionResume, Status: wire.StatusOK}
		case wire.ActionSelect:
			return &wire.Message{Action: wire.ActionSelect, Status: "NO_DEVICE"}
		}
		return nil
	}}
	s := New(port, fastConfig())
	s.Start()
	defer s.Close()

	_, err := s.Select(0x42)

	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	require.NotNil(t, selErr.Response, "rejection reply not surfaced for diagnostics")
	assert.Equal(t, "NO_DEVICE", selErr.Response.Status)
	assert.Nil(t, s.Decoder())
}

func TestSelectUnknownDeviceType(t *testing.T) {
	s := newMockSession(t)

	// First a good selection, then one the registry cannot decode. The
	// stale decoder must not survive.
	_, err := s.Select(0x25)
	require.NoError(t, err)

	_, err = s.Select(0x3C) // SSD1306 on the mock bus
	require.ErrorIs(t, err, device.ErrUnknownDevice)
	assert.Nil(t, s.Decoder())
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestEnumerate(t *testing.T) {
	s := newMockSession(t)

	devices := s.Enumerate()
	require.Len(t, devices, 2)
	assert.Equal(t, DeviceDescriptor{Addr: 0x25, Name: "uP9512"}, devices[0])
	assert.Equal(t, DeviceDescriptor{Addr: 0x3C, Name: "SSD1306"}, devices[1])
}

func TestEnumerateExhaustsRetries(t *testing.T) {
	port := &stubPort{}
	s := New(port, fastConfig())
	s.Start()
	defer s.Close()

	start := time.Now()
	devices := s.Enumerate()
	elapsed := time.Since(start)

	assert.Empty(t, devices)
	assert.NotNil(t, devices, "exhausted enumeration must return an empty list, not nil")
	assert.Less(t, elapsed, 500*time.Millisecond, "enumeration did not terminate promptly")

	sent := 0
	for _, action := range port.actions() {
		if action == wire.ActionGetDevices {
			sent++
		}
	}
	assert.Equal(t, 3, sent, "attempt budget not honored")
}

func TestBulkRWPausedDistinctFromTimeout(t *testing.T) {
	s := newMockSession(t)
	require.True(t, s.Paused())

	// The mock rejects register traffic while paused.
	_, err := s.BulkRW([]uint8{0x2D}, nil)
	assert.ErrorIs(t, err, ErrPaused)
	assert.NotErrorIs(t, err, bridge.ErrNoResponse)

	// A dead link is a timeout, not a pause rejection.
	dead := New(&stubPort{}, fastConfig())
	dead.Start()
	defer dead.Close()
	_, err = dead.BulkRW([]uint8{0x2D}, nil)
	assert.ErrorIs(t, err, bridge.ErrNoResponse)
	assert.NotErrorIs(t, err, ErrPaused)
}

func TestPausedMeasurementSnapshotInvalid(t *testing.T) {
	s := newMockSession(t)

	dec, err := s.Select(0x25)
	require.NoError(t, err)
	require.NoError(t, s.Pause())

	m := dec.Measurements()
	assert.Equal(t, device.Measurements{}, m, "paused read produced a partial snapshot")
}

func TestReadRegistersShortReply(t *testing.T) {
	port := &stubPort{handler: func(msg wire.Message) *wire.Message {
		if msg.Action != wire.ActionBulkRW {
			return nil
		}
		return &wire.Message{Action: wire.ActionBulkRW, Status: wire.StatusOK, Values: []int{1}}
	}}
	s := New(port, fastConfig())
	s.Start()
	defer s.Close()

	_, err := s.ReadRegisters([]uint8{0x2D, 0x2C})
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestRegisterFacade(t *testing.T) {
	s := newMockSession(t)
	_, err := s.Select(0x25)
	require.NoError(t, err)

	value, err := s.ReadRegister(0x3C)
	require.NoError(t, err)
	assert.Equal(t, 0x0F, value)

	require.NoError(t, s.WriteRegister(0x23, 0b011))
}

func TestDecoderOverMockBridge(t *testing.T) {
	s := newMockSession(t)

	dec, err := s.Select(0x25)
	require.NoError(t, err)

	m := dec.Measurements()
	require.True(t, m.Valid)
	assert.InDelta(t, 1.20, m.Voltage, 0.03)
	assert.Greater(t, m.Current, 0.0)
}

func TestStatus(t *testing.T) {
	s := newMockSession(t)

	status, err := s.Status()
	require.NoError(t, err)
	assert.NotEmpty(t, status.DeviceName)
	assert.GreaterOrEqual(t, status.Uptime, time.Duration(0))
}

func TestCloseSendsBestEffortPause(t *testing.T) {
	port := &stubPort{}
	s := New(port, fastConfig())
	s.Start()

	require.NoError(t, s.Close())
	assert.False(t, port.IsOpen())

	actions := port.actions()
	require.NotEmpty(t, actions)
	assert.Equal(t, wire.ActionPause, actions[len(actions)-1])

	// Idempotent: no second pause, no error.
	before := len(port.actions())
	require.NoError(t, s.Close())
	assert.Equal(t, before, len(port.actions()))
}

func TestSelectionErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &SelectionError{Addr: 0x25, Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "0x25")
}
