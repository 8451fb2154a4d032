// Package interactive provides the interactive command-line interface
// for the VCore monitor.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/Giovanni-Lovison/VCore/pkg/bridge"
	"github.com/Giovanni-Lovison/VCore/pkg/device"
	"github.com/Giovanni-Lovison/VCore/pkg/session"
)

// Monitor handles interactive mode for vcore-monitor.
type Monitor struct {
	sess    *session.Session
	devices []session.DeviceDescriptor
	rl      *readline.Instance
}

// New creates a new interactive monitor handler. devices is the result of
// the startup enumeration; 'scan' refreshes it.
func New(sess *session.Session, devices []session.DeviceDescriptor) (*Monitor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vcore> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Monitor{
		sess:    sess,
		devices: devices,
		rl:      rl,
	}, nil
}

// Stdout returns a writer that coordinates with the readline prompt.
func (m *Monitor) Stdout() io.Writer {
	return m.rl.Stdout()
}

// Run starts the interactive command loop.
func (m *Monitor) Run(ctx context.Context, cancel context.CancelFunc) {
	defer m.rl.Close()

	m.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := m.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			m.printHelp()

		case "list", "ls", "devices":
			m.cmdList()

		case "scan":
			m.cmdScan()

		case "select", "sel":
			m.cmdSelect(args)

		case "status":
			m.cmdStatus()

		case "pause":
			m.cmdPause()

		case "resume":
			m.cmdResume()

		case "read", "r":
			m.cmdRead(args)

		case "write", "w":
			m.cmdWrite(args)

		case "measure", "m":
			m.cmdMeasure()

		case "prot", "p":
			m.cmdProt()

		case "phases":
			m.cmdPhases()

		case "config":
			m.cmdConfig()

		case "monitor", "mon":
			m.cmdMonitor(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(m.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(m.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (m *Monitor) printHelp() {
	fmt.Fprintln(m.rl.Stdout(), `
VCore Monitor Commands:
  Bus:
    list                 - List devices from the last enumeration
    scan                 - Re-probe the bus
    select <addr|index>  - Select a device (hex address or list index)
    status               - Show bridge status

  Link:
    pause                - Pause register traffic
    resume               - Resume register traffic

  Registers:
    read <reg> [reg...]  - Bulk-read registers (hex or decimal)
    write <reg> <value>  - Write one register

  Device:
    measure, m           - Show a measurement snapshot
    prot, p              - Show protection status
    phases               - Show phase configuration
    config               - Show protection configuration (uP9512)
    monitor [seconds]    - Poll measurements continuously

  General:
    help                 - Show this help
    quit                 - Exit`)
}

func (m *Monitor) cmdList() {
	if len(m.devices) == 0 {
		fmt.Fprintln(m.rl.Stdout(), "No devices known; try 'scan'.")
		return
	}
	for i, dev := range m.devices {
		marker := " "
		if selected, ok := m.sess.Selected(); ok && selected.Addr == dev.Addr {
			marker = "*"
		}
		fmt.Fprintf(m.rl.Stdout(), "%s %d: %s\n", marker, i, dev)
	}
}

func (m *Monitor) cmdScan() {
	fmt.Fprintln(m.rl.Stdout(), "Scanning bus...")
	devices, err := m.sess.Scan()
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Scan failed: %v\n", err)
		return
	}
	m.devices = devices
	m.cmdList()
}

func (m *Monitor) cmdSelect(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: select <addr|index>")
		return
	}

	addr, err := m.resolveAddr(args[0])
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}

	dec, err := m.sess.Select(addr)
	if err != nil {
		var selErr *session.SelectionError
		if errors.As(err, &selErr) && selErr.Response != nil {
			fmt.Fprintf(m.rl.Stdout(), "Selection failed: %v (bridge said %q)\n", err, selErr.Response.Status)
		} else {
			fmt.Fprintf(m.rl.Stdout(), "Selection failed: %v\n", err)
		}
		return
	}
	fmt.Fprintf(m.rl.Stdout(), "Selected %s at 0x%02X\n", dec.DeviceName(), dec.Addr())
}

// resolveAddr accepts a list index, a decimal address or a hex address.
func (m *Monitor) resolveAddr(arg string) (uint8, error) {
	if idx, err := strconv.Atoi(arg); err == nil && idx >= 0 && idx < len(m.devices) && !strings.HasPrefix(arg, "0x") {
		return m.devices[idx].Addr, nil
	}
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("not a device index or address: %q", arg)
	}
	return uint8(value), nil
}

func (m *Monitor) cmdStatus() {
	status, err := m.sess.Status()
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Status failed: %v\n", err)
		return
	}

	link := "active"
	if m.sess.Paused() {
		link = "paused"
	}
	fmt.Fprintf(m.rl.Stdout(), "Bridge:  %s (up %s)\n", status.DeviceName, status.Uptime)
	fmt.Fprintf(m.rl.Stdout(), "Link:    %s\n", link)
	if selected, ok := m.sess.Selected(); ok {
		fmt.Fprintf(m.rl.Stdout(), "Device:  %s\n", selected)
	} else {
		fmt.Fprintln(m.rl.Stdout(), "Device:  none selected")
	}
}

func (m *Monitor) cmdPause() {
	if err := m.sess.Pause(); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Pause failed: %v\n", err)
		return
	}
	fmt.Fprintln(m.rl.Stdout(), "Link paused")
}

func (m *Monitor) cmdResume() {
	if err := m.sess.Resume(); err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Resume failed: %v\n", err)
		return
	}
	fmt.Fprintln(m.rl.Stdout(), "Link active")
}

func (m *Monitor) cmdRead(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: read <reg> [reg...]")
		return
	}

	regs := make([]uint8, 0, len(args))
	for _, arg := range args {
		reg, err := parseReg(arg)
		if err != nil {
			fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
			return
		}
		regs = append(regs, reg)
	}

	values, err := m.sess.ReadRegisters(regs)
	if err != nil {
		m.printLinkError(err)
		return
	}
	for i, reg := range regs {
		fmt.Fprintf(m.rl.Stdout(), "  0x%02X = 0x%02X (%d)\n", reg, values[i], values[i])
	}
}

func (m *Monitor) cmdWrite(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(m.rl.Stdout(), "Usage: write <reg> <value>")
		return
	}

	reg, err := parseReg(args[0])
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}
	value, err := parseValue(args[1])
	if err != nil {
		fmt.Fprintf(m.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if err := m.sess.WriteRegister(reg, value); err != nil {
		m.printLinkError(err)
		return
	}
	fmt.Fprintf(m.rl.Stdout(), "Wrote 0x%02X = 0x%02X\n", reg, value)
}

func (m *Monitor) cmdMeasure() {
	dec := m.sess.Decoder()
	if dec == nil {
		fmt.Fprintln(m.rl.Stdout(), "No device selected")
		return
	}
	m.printMeasurements(dec.Measurements())
}

func (m *Monitor) printMeasurements(meas device.Measurements) {
	w := m.rl.Stdout()
	if !meas.Valid {
		fmt.Fprintln(w, "Measurements unavailable (link paused or read failed)")
		return
	}

	fmt.Fprintf(w, "  Voltage:     %6.3f V\n", meas.Voltage)
	fmt.Fprintf(w, "  Current:     %6.2f A\n", meas.Current)
	if meas.AvgCurrent != 0 {
		fmt.Fprintf(w, "  Avg current: %6.2f A\n", meas.AvgCurrent)
	}
	fmt.Fprintf(w, "  Power:       %6.2f W\n", meas.Power)
	fmt.Fprintf(w, "  Temperature: %6.1f C\n", meas.Temperature)
	if meas.VRShutdown != 0 {
		fmt.Fprintf(w, "  VR shutdown: %6.3f V\n", meas.VRShutdown)
	}
	if meas.OperatingPhases != 0 {
		fmt.Fprintf(w, "  Phases:      %d\n", meas.OperatingPhases)
	}
	if meas.Protections.Valid {
		if faults := faultList(meas.Protections); len(faults) > 0 {
			fmt.Fprintf(w, "  Faults:      %s\n", strings.Join(faults, ", "))
		}
	}
}

func (m *Monitor) cmdProt() {
	dec := m.sess.Decoder()
	if dec == nil {
		fmt.Fprintln(m.rl.Stdout(), "No device selected")
		return
	}

	prot := dec.ProtectionStatus()
	w := m.rl.Stdout()
	if !prot.Valid {
		fmt.Fprintln(w, "Protection status unavailable (link paused or read failed)")
		return
	}

	faults := faultList(prot)
	if len(faults) == 0 {
		fmt.Fprintln(w, "  No faults")
	} else {
		fmt.Fprintf(w, "  Faults: %s\n", strings.Join(faults, ", "))
	}
	if prot.OperatingPhases != 0 {
		fmt.Fprintf(w, "  Operating phases: %d\n", prot.OperatingPhases)
	}
	if prot.ActivePhases != 0 {
		fmt.Fprintf(w, "  Active phases: %d\n", prot.ActivePhases)
	}
	for i, ocl := range prot.PhaseOCL {
		if ocl {
			fmt.Fprintf(w, "  Phase %d OCL\n", i+1)
		}
	}
}

// faultList names the set protection flags.
func faultList(p device.Protections) []string {
	var faults []string
	add := func(set bool, name string) {
		if set {
			faults = append(faults, name)
		}
	}
	add(p.OTP, "OTP")
	add(p.TotalOCP, "total OCP")
	add(p.ChannelOCL, "channel OCL")
	add(p.OVP, "OVP")
	add(p.UVP, "UVP")
	add(p.OVPWarning, "OVP warning")
	add(p.UVPWarning, "UVP warning")
	add(p.OCPWarning, "OCP warning")
	add(p.OTPWarning, "OTP warning")
	add(p.VinUVLO, "VIN UVLO")
	add(p.PowerGoodNeg, "power good deasserted")
	add(p.DriverFault, "driver fault")
	add(p.UnpopulatedPhase, "unpopulated phase")
	add(p.ExternalOTP, "external OTP")
	return faults
}

func (m *Monitor) cmdPhases() {
	w := m.rl.Stdout()
	switch dec := m.sess.Decoder().(type) {
	case *device.UP9512:
		cfg, err := dec.PhaseConfig()
		if err != nil {
			m.printLinkError(err)
			return
		}
		fmt.Fprintf(w, "  LCS0: %d  LCS1: %d  LCS2: %d  LCS3: %d  LCS4: %d\n",
			cfg.LCS0, cfg.LCS1, cfg.LCS2, cfg.LCS3, cfg.LCS4)

	case *device.NCP4206:
		count, err := dec.PhaseCount()
		if err != nil {
			m.printLinkError(err)
			return
		}
		fmt.Fprintf(w, "  Active phases: %d\n", count)

	case nil:
		fmt.Fprintln(w, "No device selected")

	default:
		fmt.Fprintf(w, "%s does not expose phase configuration\n", dec.DeviceName())
	}
}

func (m *Monitor) cmdConfig() {
	w := m.rl.Stdout()
	dec, ok := m.sess.Decoder().(*device.UP9512)
	if !ok {
		fmt.Fprintln(w, "Protection configuration is only available on uP9512")
		return
	}

	cfg, err := dec.ProtectionConfig()
	if err != nil {
		m.printLinkError(err)
		return
	}
	thresholds, err := dec.ProtectionThresholds()
	if err != nil {
		m.printLinkError(err)
		return
	}
	balance, err := dec.CurrentBalanceEnabled()
	if err != nil {
		m.printLinkError(err)
		return
	}

	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	fmt.Fprintf(w, "  Total OCP:   %s (threshold %d%%)\n", onOff(cfg.TotalOCPEnabled), thresholds.TotalOCPPercent)
	fmt.Fprintf(w, "  Channel OCL: %s\n", onOff(cfg.ChannelOCLEnabled))
	fmt.Fprintf(w, "  OVP:         %s\n", onOff(cfg.OVPEnabled))
	fmt.Fprintf(w, "  UVP:         %s\n", onOff(cfg.UVPEnabled))
	fmt.Fprintf(w, "  Thermal shutdown: %d mV\n", thresholds.ThermalShutdownMV)
	fmt.Fprintf(w, "  Current balance:  %s\n", onOff(balance))
}

func (m *Monitor) cmdMonitor(ctx context.Context, args []string) {
	dec := m.sess.Decoder()
	if dec == nil {
		fmt.Fprintln(m.rl.Stdout(), "No device selected")
		return
	}

	duration := 5 * time.Second
	if len(args) == 1 {
		seconds, err := strconv.Atoi(args[0])
		if err != nil || seconds <= 0 {
			fmt.Fprintln(m.rl.Stdout(), "Usage: monitor [seconds]")
			return
		}
		duration = time.Duration(seconds) * time.Second
	}

	fmt.Fprintf(m.rl.Stdout(), "Monitoring %s for %s...\n", dec.DeviceName(), duration)

	deadline := time.Now().Add(duration)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			meas := dec.Measurements()
			if !meas.Valid {
				fmt.Fprintln(m.rl.Stdout(), "  (unavailable)")
				continue
			}
			fmt.Fprintf(m.rl.Stdout(), "  %6.3f V  %6.2f A  %6.2f W  %5.1f C\n",
				meas.Voltage, meas.Current, meas.Power, meas.Temperature)
		}
	}
}

// printLinkError explains facade errors in link terms.
func (m *Monitor) printLinkError(err error) {
	w := m.rl.Stdout()
	switch {
	case errors.Is(err, session.ErrPaused):
		fmt.Fprintln(w, "Link is paused; 'resume' first")
	case errors.Is(err, bridge.ErrNoResponse):
		fmt.Fprintln(w, "No response from bridge (state unknown)")
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}

// parseValue accepts a 0x-prefixed hex value or a decimal value.
func parseValue(arg string) (int, error) {
	if cleaned, ok := strings.CutPrefix(strings.ToLower(arg), "0x"); ok {
		value, err := strconv.ParseInt(cleaned, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("not a value: %q", arg)
		}
		return int(value), nil
	}
	value, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not a value: %q", arg)
	}
	return int(value), nil
}

// parseReg accepts hex (with or without 0x) and decimal register
// addresses.
func parseReg(arg string) (uint8, error) {
	cleaned := strings.TrimPrefix(strings.ToLower(arg), "0x")
	if value, err := strconv.ParseUint(cleaned, 16, 8); err == nil {
		return uint8(value), nil
	}
	if value, err := strconv.ParseUint(arg, 10, 8); err == nil {
		return uint8(value), nil
	}
	return 0, fmt.Errorf("not a register address: %q", arg)
}
