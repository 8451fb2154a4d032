package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Giovanni-Lovison/VCore/pkg/log"
)

// writeTrace writes a small four-event trace and returns its path.
func writeTrace(t *testing.T) string {
	t.Helper()

	base := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	events := []log.Event{
		{
			Timestamp: base,
			SessionID: "0b53a4e1-2f9c-4d8a-9a51-000000000000",
			Direction: log.DirectionOut,
			Layer:     log.LayerWire,
			Category:  log.CategoryMessage,
			Message:   &log.MessageEvent{Action: "get_devices", Payload: json.RawMessage(`{"action":"get_devices"}`)},
		},
		{
			Timestamp: base.Add(120 * time.Millisecond),
			SessionID: "0b53a4e1-2f9c-4d8a-9a51-000000000000",
			Direction: log.DirectionIn,
			Layer:     log.LayerWire,
			Category:  log.CategoryMessage,
			Message:   &log.MessageEvent{Action: "get_devices", Payload: json.RawMessage(`{"action":"get_devices","devices":[37]}`)},
		},
		{
			Timestamp: base.Add(200 * time.Millisecond),
			SessionID: "0b53a4e1-2f9c-4d8a-9a51-000000000000",
			Direction: log.DirectionLocal,
			Layer:     log.LayerSession,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityLink,
				OldState: "paused",
				NewState: "active",
				Reason:   "resume acknowledged",
			},
		},
		{
			Timestamp: base.Add(300 * time.Millisecond),
			SessionID: "0b53a4e1-2f9c-4d8a-9a51-000000000000",
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Line:      &log.LineEvent{Size: 9, Data: []byte("not json!")},
			Error:     &log.ErrorEventData{Layer: log.LayerTransport, Message: "invalid message", Context: "decode line"},
		},
	}

	path := filepath.Join(t.TempDir(), "bridge.trace")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, event := range events {
		logger.Log(event)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func TestRunView(t *testing.T) {
	path := writeTrace(t)

	var out bytes.Buffer
	if err := RunView(path, ViewFilter{}, &out); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"get_devices", "paused -> active", "invalid message", "0b53a4e1"} {
		if !strings.Contains(text, want) {
			t.Errorf("view output missing %q:\n%s", want, text)
		}
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := writeTrace(t)

	dir := log.DirectionOut
	var out bytes.Buffer
	if err := RunView(path, ViewFilter{Direction: &dir}, &out); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	if got := strings.Count(out.String(), "OUT"); got != 1 {
		t.Errorf("filtered view shows %d OUT events, want 1:\n%s", got, out.String())
	}
	if strings.Contains(out.String(), "State") {
		t.Errorf("filtered view leaked a state event:\n%s", out.String())
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := writeTrace(t)
	out := filepath.Join(t.TempDir(), "trace.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data := readFile(t, out)
	lines := nonEmptyLines(data)
	if len(lines) != 4 {
		t.Fatalf("exported %d lines, want 4", len(lines))
	}
	for i, line := range lines {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
}

func TestRunExportCSV(t *testing.T) {
	path := writeTrace(t)
	out := filepath.Join(t.TempDir(), "trace.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines := nonEmptyLines(readFile(t, out))
	if len(lines) != 5 { // header + 4 events
		t.Fatalf("exported %d lines, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,session,direction") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "get_devices") {
		t.Errorf("first row missing action: %s", lines[1])
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	if err := RunExport(writeTrace(t), "xml", ""); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestRunFilter(t *testing.T) {
	path := writeTrace(t)
	out := filepath.Join(t.TempDir(), "errors.trace")

	err := RunFilter(path, FilterOptions{Output: out, Category: "error"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if event.Category != log.CategoryError {
			t.Errorf("filtered file contains category %s", event.Category)
		}
		count++
	}
	if count != 1 {
		t.Errorf("filtered file has %d events, want 1", count)
	}
}

func TestRunStats(t *testing.T) {
	path := writeTrace(t)

	var out bytes.Buffer
	if err := RunStats(path, &out); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Total Events: 4", "Sessions: 1", "get_devices: 2", "Errors: 1"} {
		if !strings.Contains(text, want) {
			t.Errorf("stats output missing %q:\n%s", want, text)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("Wire"); err != nil || l != log.LayerWire {
		t.Errorf("ParseLayerFlag(Wire) = (%v, %v)", l, err)
	}
	if d, err := ParseDirectionFlag("LOCAL"); err != nil || d != log.DirectionLocal {
		t.Errorf("ParseDirectionFlag(LOCAL) = (%v, %v)", d, err)
	}
	if c, err := ParseCategoryFlag("state"); err != nil || c != log.CategoryState {
		t.Errorf("ParseCategoryFlag(state) = (%v, %v)", c, err)
	}
	for _, bad := range []string{"", "bogus"} {
		if _, err := ParseLayerFlag(bad); err == nil {
			t.Errorf("ParseLayerFlag(%q) accepted", bad)
		}
		if _, err := ParseDirectionFlag(bad); err == nil {
			t.Errorf("ParseDirectionFlag(%q) accepted", bad)
		}
		if _, err := ParseCategoryFlag(bad); err == nil {
			t.Errorf("ParseCategoryFlag(%q) accepted", bad)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
