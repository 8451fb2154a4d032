// Package config loads the monitor configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Giovanni-Lovison/VCore/pkg/session"
	"github.com/Giovanni-Lovison/VCore/pkg/transport"
)

// Duration is a time.Duration that decodes from YAML either as a Go
// duration string ("500ms") or as a bare number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration %q", raw)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config holds the monitor settings.
type Config struct {
	// Port is the serial device path. Empty means auto-discover the
	// bridge by its USB vendor ID.
	Port string `yaml:"port"`

	// BaudRate for the serial link.
	BaudRate int `yaml:"baud_rate"`

	// Mock replaces the serial port with the simulated bridge.
	Mock bool `yaml:"mock"`

	// TraceFile receives the binary protocol trace. Empty disables it.
	TraceFile string `yaml:"trace_file"`

	// JSONTraceFile receives the same trace as one JSON record per line.
	// Empty disables it.
	JSONTraceFile string `yaml:"json_trace_file"`

	// LogLevel for console output: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ResponseTimeout is the per-command reply timeout.
	ResponseTimeout Duration `yaml:"response_timeout"`

	// EnumAttempts bounds enumeration retries at startup.
	EnumAttempts int `yaml:"enum_attempts"`

	// EnumTimeoutStep scales the per-attempt enumeration timeout.
	EnumTimeoutStep Duration `yaml:"enum_timeout_step"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		BaudRate:        transport.DefaultBaudRate,
		LogLevel:        "info",
		ResponseTimeout: Duration(1 * time.Second),
		EnumAttempts:    session.DefaultEnumAttempts,
		EnumTimeoutStep: Duration(session.DefaultEnumTimeoutStep),
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.EnumAttempts < 1 {
		return fmt.Errorf("enum_attempts must be at least 1, got %d", c.EnumAttempts)
	}
	if c.ResponseTimeout <= 0 {
		return fmt.Errorf("response_timeout must be positive")
	}
	return nil
}
