package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vcore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
port: /dev/ttyUSB3
mock: true
trace_file: /tmp/vcore.trace
response_timeout: 250ms
enum_attempts: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "/dev/ttyUSB3" || !cfg.Mock {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if time.Duration(cfg.ResponseTimeout) != 250*time.Millisecond {
		t.Errorf("ResponseTimeout = %v, want 250ms", time.Duration(cfg.ResponseTimeout))
	}
	if cfg.EnumAttempts != 2 {
		t.Errorf("EnumAttempts = %d, want 2", cfg.EnumAttempts)
	}
	// Untouched fields keep defaults.
	if cfg.BaudRate != Default().BaudRate {
		t.Errorf("BaudRate = %d, want default %d", cfg.BaudRate, Default().BaudRate)
	}
}

func TestDurationAcceptsBareSeconds(t *testing.T) {
	path := writeConfig(t, "response_timeout: 1.5\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if time.Duration(cfg.ResponseTimeout) != 1500*time.Millisecond {
		t.Errorf("ResponseTimeout = %v, want 1.5s", time.Duration(cfg.ResponseTimeout))
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad duration", "response_timeout: soon\n"},
		{"bad log level", "log_level: chatty\n"},
		{"bad baud", "baud_rate: -1\n"},
		{"bad attempts", "enum_attempts: 0\n"},
		{"not yaml", "{{{\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load accepted a missing file")
	}
}
