// Command vcore-monitor is an interactive console for VRM controllers
// behind a serial register bridge.
//
// It connects to the bridge, enumerates the bus, auto-selects the first
// device and drops into an interactive prompt for reading measurements,
// protection status and raw registers.
//
// Usage:
//
//	vcore-monitor [flags]
//
// Flags:
//
//	-config string      Configuration file path (YAML)
//	-port string        Serial device path (default: auto-discover)
//	-baud int           Baud rate (default 115200)
//	-mock               Use the simulated bridge instead of a serial port
//	-trace string       Write a binary protocol trace to this file
//	-json-trace string  Write a JSONL protocol trace to this file
//	-log-level string   Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Auto-discover the bridge and start monitoring
//	vcore-monitor
//
//	# Run against the simulated bridge with a trace file
//	vcore-monitor -mock -trace bridge.trace
//
//	# Explicit port with config file
//	vcore-monitor -port /dev/ttyUSB0 -config vcore.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Giovanni-Lovison/VCore/cmd/vcore-monitor/interactive"
	"github.com/Giovanni-Lovison/VCore/pkg/config"
	"github.com/Giovanni-Lovison/VCore/pkg/log"
	"github.com/Giovanni-Lovison/VCore/pkg/session"
	"github.com/Giovanni-Lovison/VCore/pkg/transport"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path (YAML)")
		portPath   = flag.String("port", "", "Serial device path (default: auto-discover)")
		baudRate   = flag.Int("baud", 0, "Baud rate")
		mock       = flag.Bool("mock", false, "Use the simulated bridge instead of a serial port")
		traceFile  = flag.String("trace", "", "Write a binary protocol trace to this file")
		jsonTrace  = flag.String("json-trace", "", "Write a JSONL protocol trace to this file")
		logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
	}

	// Flags override the config file.
	if *portPath != "" {
		cfg.Port = *portPath
	}
	if *baudRate > 0 {
		cfg.BaudRate = *baudRate
	}
	if *mock {
		cfg.Mock = true
	}
	if *traceFile != "" {
		cfg.TraceFile = *traceFile
	}
	if *jsonTrace != "" {
		cfg.JSONTraceFile = *jsonTrace
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	logger, closeLoggers, err := buildLogger(cfg)
	if err != nil {
		fatal(err)
	}
	defer closeLoggers()

	port, err := openPort(cfg)
	if err != nil {
		fatal(err)
	}

	sess := session.New(port, session.Config{
		Logger:          logger,
		ResponseTimeout: time.Duration(cfg.ResponseTimeout),
		EnumAttempts:    cfg.EnumAttempts,
		EnumTimeoutStep: time.Duration(cfg.EnumTimeoutStep),
	})
	sess.Start()
	defer sess.Close()

	fmt.Printf("VCore Monitor (session %s)\n", sess.ID())
	fmt.Println("Enumerating bus...")

	devices := sess.Enumerate()
	if len(devices) == 0 {
		fmt.Println("No devices found. The bridge may be offline; try 'scan' later.")
	} else {
		for i, dev := range devices {
			fmt.Printf("  %d: %s\n", i, dev)
		}
		autoSelect(sess, devices)
	}

	mon, err := interactive.New(sess, devices)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	mon.Run(ctx, cancel)

	fmt.Println("Closing session...")
}

// autoSelect targets the first device the registry can decode.
func autoSelect(sess *session.Session, devices []session.DeviceDescriptor) {
	for _, dev := range devices {
		if !sess.Registry().Supports(dev.Name) {
			continue
		}
		if _, err := sess.Select(dev.Addr); err != nil {
			fmt.Printf("Auto-select %s failed: %v\n", dev, err)
			return
		}
		fmt.Printf("Selected %s\n", dev)
		return
	}
	fmt.Println("No supported device on the bus; use 'select' manually.")
}

// buildLogger assembles the trace sinks configured in cfg.
func buildLogger(cfg config.Config) (log.Logger, func(), error) {
	var sinks []log.Logger
	var closers []func() error

	if cfg.TraceFile != "" {
		fl, err := log.NewFileLogger(cfg.TraceFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open trace file: %w", err)
		}
		sinks = append(sinks, fl)
		closers = append(closers, fl.Close)
	}
	if cfg.JSONTraceFile != "" {
		jl, err := log.NewJSONFileLogger(cfg.JSONTraceFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open json trace file: %w", err)
		}
		sinks = append(sinks, jl)
		closers = append(closers, jl.Close)
	}
	if cfg.LogLevel == "debug" {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		sinks = append(sinks, log.NewSlogAdapter(slog.New(handler)))
	}

	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if len(sinks) == 0 {
		return log.NoopLogger{}, closeAll, nil
	}
	return log.NewMultiLogger(sinks...), closeAll, nil
}

// openPort opens the configured transport: the simulated bridge, an
// explicit serial path or the first discovered bridge adapter.
func openPort(cfg config.Config) (transport.Port, error) {
	if cfg.Mock {
		fmt.Println("Using simulated bridge")
		return transport.NewMockPort(), nil
	}

	path := cfg.Port
	if path == "" {
		discovered, err := transport.Discover()
		if err != nil {
			return nil, fmt.Errorf("%w (set -port explicitly or use -mock)", err)
		}
		path = discovered
	}

	fmt.Printf("Opening %s at %d baud\n", path, cfg.BaudRate)
	return transport.OpenSerial(path, transport.SerialOptions{BaudRate: cfg.BaudRate})
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
