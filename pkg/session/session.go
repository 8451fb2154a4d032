package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Giovanni-Lovison/VCore/pkg/bridge"
	"github.com/Giovanni-Lovison/VCore/pkg/device"
	"github.com/Giovanni-Lovison/VCore/pkg/log"
	"github.com/Giovanni-Lovison/VCore/pkg/transport"
	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// Session errors.
var (
	// ErrPaused indicates the bridge rejected a register transaction
	// because the link is paused. No bus traffic happened.
	ErrPaused = errors.New("link is paused")

	// ErrShortRead indicates a bulk read reply carried fewer values than
	// registers requested.
	ErrShortRead = errors.New("short register read")
)

// SelectionError reports a failed device selection. Response carries the
// bridge's reply when one arrived; it is nil on timeout.
type SelectionError struct {
	Addr     uint8
	Response *wire.Message
	Err      error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("select 0x%02X: %v", e.Addr, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

// Enumeration defaults, sized for a bridge that may still be booting.
const (
	// DefaultEnumAttempts is the number of enumeration attempts.
	DefaultEnumAttempts = 5

	// DefaultEnumTimeoutStep is the per-attempt reply timeout increment:
	// attempt n waits n times this long.
	DefaultEnumTimeoutStep = 1 * time.Second
)

// Config carries session construction parameters. The zero value works.
type Config struct {
	// SessionID tags all trace events. A UUID is generated when empty.
	SessionID string

	// Logger receives trace events. Nil disables tracing.
	Logger log.Logger

	// ResponseTimeout is the default reply timeout for commands.
	ResponseTimeout time.Duration

	// EnumAttempts bounds enumeration retries.
	EnumAttempts int

	// EnumTimeoutStep scales the per-attempt enumeration timeout.
	EnumTimeoutStep time.Duration

	// Backoff paces the delay between enumeration attempts.
	Backoff BackoffConfig
}

// BridgeStatus is the bridge's self-report.
type BridgeStatus struct {
	Uptime     time.Duration
	DeviceName string
}

// Session drives one bridge link: it owns the frame reader, the
// correlation client and the paused/active plus device-selection state.
// All methods must be called from a single goroutine; see the package
// documentation.
type Session struct {
	port     transport.Port
	queue    *transport.Queue
	reader   *transport.LineReader
	client   *bridge.Client
	logger   log.Logger
	registry *device.Registry

	sessionID string

	enumAttempts    int
	enumTimeoutStep time.Duration
	backoff         *Backoff

	paused   bool
	selected *DeviceDescriptor
	decoder  device.Decoder

	closeOnce sync.Once
	closeErr  error
}

// Session implements the register access facade the decoders run on.
var _ device.RegisterAccess = (*Session)(nil)

// New builds a session over port. The frame reader does not run until
// Start is called. The link starts paused with no device selected.
func New(port transport.Port, cfg Config) *Session {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	if cfg.EnumAttempts <= 0 {
		cfg.EnumAttempts = DefaultEnumAttempts
	}
	if cfg.EnumTimeoutStep <= 0 {
		cfg.EnumTimeoutStep = DefaultEnumTimeoutStep
	}

	queue := transport.NewQueue()
	client := bridge.NewClient(port, queue, cfg.Logger, cfg.SessionID)
	if cfg.ResponseTimeout > 0 {
		client.SetTimeout(cfg.ResponseTimeout)
	}

	return &Session{
		port:            port,
		queue:           queue,
		reader:          transport.NewLineReader(port, queue, cfg.Logger, cfg.SessionID),
		client:          client,
		logger:          cfg.Logger,
		registry:        device.NewRegistry(),
		sessionID:       cfg.SessionID,
		enumAttempts:    cfg.EnumAttempts,
		enumTimeoutStep: cfg.EnumTimeoutStep,
		backoff:         NewBackoffWithConfig(cfg.Backoff),
		paused:          true,
	}
}

// ID returns the session identifier used in trace events.
func (s *Session) ID() string { return s.sessionID }

// Registry returns the device registry backing selection.
func (s *Session) Registry() *device.Registry { return s.registry }

// Paused reports whether the link is paused.
func (s *Session) Paused() bool { return s.paused }

// Selected returns the currently selected device, if any.
func (s *Session) Selected() (DeviceDescriptor, bool) {
	if s.selected == nil {
		return DeviceDescriptor{}, false
	}
	return *s.selected, true
}

// Decoder returns the decoder for the selected device, nil when none.
func (s *Session) Decoder() device.Decoder { return s.decoder }

// Start launches the frame reader.
func (s *Session) Start() {
	s.reader.Start()
}

// Pause sends a pause command and marks the link paused on acknowledgement.
func (s *Session) Pause() error {
	reply, err := s.client.Call(wire.Message{Action: wire.ActionPause}, 0)
	if err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	if !reply.IsOK() {
		return fmt.Errorf("pause rejected: status %q", reply.Status)
	}
	s.setPaused(true, "pause acknowledged")
	return nil
}

// Resume sends a resume command and marks the link active on
// acknowledgement.
func (s *Session) Resume() error {
	reply, err := s.client.Call(wire.Message{Action: wire.ActionResume}, 0)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if !reply.IsOK() {
		return fmt.Errorf("resume rejected: status %q", reply.Status)
	}
	s.setPaused(false, "resume acknowledged")
	return nil
}

// Select targets the device at addr and builds its decoder. A paused link
// is resumed first, since the bridge rejects select while paused; when
// that implicit resume fails the select command is not sent and the
// session state is unchanged. On any selection failure the previous
// selection is cleared.
func (s *Session) Select(addr uint8) (device.Decoder, error) {
	if s.paused {
		if err := s.Resume(); err != nil {
			return nil, &SelectionError{Addr: addr, Err: fmt.Errorf("implicit resume: %w", err)}
		}
	}

	reply, err := s.client.Call(wire.Message{Action: wire.ActionSelect}.WithAddr(addr), 0)
	if err != nil {
		s.clearSelection("select timed out")
		return nil, &SelectionError{Addr: addr, Err: err}
	}
	if !reply.IsOK() {
		s.clearSelection("select rejected")
		return nil, &SelectionError{Addr: addr, Response: reply, Err: fmt.Errorf("status %q", reply.Status)}
	}

	dec, err := s.registry.New(reply.Name, s, addr)
	if err != nil {
		s.clearSelection("unsupported device")
		return nil, &SelectionError{Addr: addr, Response: reply, Err: err}
	}

	old := s.selectionLabel()
	s.selected = &DeviceDescriptor{Addr: addr, Name: reply.Name}
	s.decoder = dec
	s.logState(log.StateEntitySelection, old, s.selectionLabel(), "select acknowledged")
	return dec, nil
}

// Enumerate queries the bridge for its device list. Stale replies are
// drained first. Attempts use progressively longer timeouts, with a paced
// delay between attempts; after exhausting the attempt budget an empty
// list is returned, never an error.
func (s *Session) Enumerate() []DeviceDescriptor {
	s.queue.Drain()
	s.backoff.Reset()

	for attempt := 1; attempt <= s.enumAttempts; attempt++ {
		timeout := time.Duration(attempt) * s.enumTimeoutStep
		reply, err := s.client.Call(wire.Message{Action: wire.ActionGetDevices}, timeout)
		if err == nil {
			if devices := descriptors(reply); len(devices) > 0 {
				return devices
			}
		}
		if attempt < s.enumAttempts {
			time.Sleep(s.backoff.Next())
		}
	}
	return []DeviceDescriptor{}
}

// Scan asks the bridge to re-probe the bus and returns the result of a
// single attempt.
func (s *Session) Scan() ([]DeviceDescriptor, error) {
	reply, err := s.client.Call(wire.Message{Action: wire.ActionScan}, 0)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return descriptors(reply), nil
}

// Status queries the bridge's self-report.
func (s *Session) Status() (BridgeStatus, error) {
	reply, err := s.client.Call(wire.Message{Action: wire.ActionGetStatus}, 0)
	if err != nil {
		return BridgeStatus{}, fmt.Errorf("get_status: %w", err)
	}

	status := BridgeStatus{DeviceName: reply.DeviceName}
	if reply.Uptime != nil {
		status.Uptime = time.Duration(*reply.Uptime) * time.Second
	}
	return status, nil
}

// BulkRW performs one bulk register transaction on the selected device.
// It returns bridge.ErrNoResponse on timeout and ErrPaused when the
// bridge rejected the transaction because the link is paused; the two are
// distinct, a paused rejection means no bus traffic happened.
func (s *Session) BulkRW(reads []uint8, writes []wire.RegisterWrite) (*wire.Message, error) {
	reply, err := s.client.Call(wire.Message{
		Action: wire.ActionBulkRW,
		Reads:  reads,
		Writes: writes,
	}, 0)
	if err != nil {
		return nil, err
	}
	if reply.IsPaused() {
		return nil, ErrPaused
	}
	if !reply.IsOK() {
		return nil, fmt.Errorf("bulk_rw rejected: status %q", reply.Status)
	}
	return reply, nil
}

// ReadRegisters reads the given registers in one bulk transaction.
func (s *Session) ReadRegisters(regs []uint8) ([]int, error) {
	reply, err := s.BulkRW(regs, nil)
	if err != nil {
		return nil, err
	}
	if len(reply.Values) < len(regs) {
		return nil, fmt.Errorf("%w: got %d values for %d registers", ErrShortRead, len(reply.Values), len(regs))
	}
	return reply.Values, nil
}

// WriteRegisters writes the given register/value pairs in one bulk
// transaction.
func (s *Session) WriteRegisters(writes []wire.RegisterWrite) error {
	_, err := s.BulkRW(nil, writes)
	return err
}

// ReadRegister reads a single register.
func (s *Session) ReadRegister(reg uint8) (int, error) {
	values, err := s.ReadRegisters([]uint8{reg})
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// WriteRegister writes a single register.
func (s *Session) WriteRegister(reg uint8, value int) error {
	return s.WriteRegisters([]wire.RegisterWrite{{Reg: reg, Value: value}})
}

// Close shuts the session down: a best-effort pause is written directly
// (no reply wait, the bridge may already be gone), the frame reader is
// stopped with a bounded join, pending replies are dropped and the port
// is closed. Close is idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.sendPauseDirect()
		s.reader.Stop()
		s.queue.Drain()
		s.logState(log.StateEntityLink, s.linkLabel(), "closed", "session close")
		s.closeErr = s.port.Close()
	})
	return s.closeErr
}

// sendPauseDirect writes a pause command without waiting for a reply.
func (s *Session) sendPauseDirect() {
	if !s.port.IsOpen() {
		return
	}
	data, err := wire.Marshal(wire.Message{Action: wire.ActionPause})
	if err != nil {
		return
	}
	_, _ = s.port.Write(data)
	// Give the bridge a moment to drain the line before the port closes.
	time.Sleep(10 * time.Millisecond)
}

func (s *Session) setPaused(paused bool, reason string) {
	if s.paused == paused {
		return
	}
	old := s.linkLabel()
	s.paused = paused
	s.logState(log.StateEntityLink, old, s.linkLabel(), reason)
}

func (s *Session) clearSelection(reason string) {
	if s.selected == nil && s.decoder == nil {
		return
	}
	old := s.selectionLabel()
	s.selected = nil
	s.decoder = nil
	s.logState(log.StateEntitySelection, old, s.selectionLabel(), reason)
}

func (s *Session) linkLabel() string {
	if s.paused {
		return "paused"
	}
	return "active"
}

func (s *Session) selectionLabel() string {
	if s.selected == nil {
		return "none"
	}
	return fmt.Sprintf("%s@0x%02X", s.selected.Name, s.selected.Addr)
}

func (s *Session) logState(entity log.StateEntity, old, next, reason string) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.sessionID,
		Direction: log.DirectionLocal,
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: old,
			NewState: next,
			Reason:   reason,
		},
	})
}

// descriptors pairs the address and name lists of an enumeration reply.
// Extra entries on either side are dropped.
func descriptors(reply *wire.Message) []DeviceDescriptor {
	n := len(reply.Devices)
	if len(reply.Names) < n {
		n = len(reply.Names)
	}
	out := make([]DeviceDescriptor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, DeviceDescriptor{Addr: reply.Devices[i], Name: reply.Names[i]})
	}
	return out
}
