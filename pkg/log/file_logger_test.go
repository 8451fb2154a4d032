package log

import (
	"encoding/json"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func makeTestEvents() []Event {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return []Event{
		{
			Timestamp: base,
			SessionID: "s-1",
			Direction: DirectionOut,
			Layer:     LayerWire,
			Category:  CategoryMessage,
			Message: &MessageEvent{
				Action:  "get_devices",
				Payload: json.RawMessage(`{"action":"get_devices"}`),
			},
		},
		{
			Timestamp: base.Add(50 * time.Millisecond),
			SessionID: "s-1",
			Direction: DirectionIn,
			Layer:     LayerWire,
			Category:  CategoryMessage,
			Message: &MessageEvent{
				Action:  "get_devices",
				Payload: json.RawMessage(`{"action":"get_devices","devices":[37],"names":["uP9512"]}`),
			},
		},
		{
			Timestamp: base.Add(100 * time.Millisecond),
			SessionID: "s-1",
			Direction: DirectionLocal,
			Layer:     LayerSession,
			Category:  CategoryState,
			StateChange: &StateChangeEvent{
				Entity:   StateEntityLink,
				OldState: "paused",
				NewState: "active",
			},
		},
		{
			Timestamp: base.Add(150 * time.Millisecond),
			SessionID: "s-1",
			Direction: DirectionIn,
			Layer:     LayerTransport,
			Category:  CategoryError,
			Error: &ErrorEventData{
				Layer:   LayerTransport,
				Message: "invalid JSON",
				Context: "line parse",
			},
		},
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.vlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	events := makeTestEvents()
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	var got []Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, e)
	}

	if len(got) != len(events) {
		t.Fatalf("read %d events, want %d", len(got), len(events))
	}
	for i, e := range got {
		if e.Direction != events[i].Direction {
			t.Errorf("event %d: direction = %v, want %v", i, e.Direction, events[i].Direction)
		}
		if e.Layer != events[i].Layer {
			t.Errorf("event %d: layer = %v, want %v", i, e.Layer, events[i].Layer)
		}
		if !e.Timestamp.Equal(events[i].Timestamp) {
			t.Errorf("event %d: timestamp = %v, want %v", i, e.Timestamp, events[i].Timestamp)
		}
	}
	if got[0].Message == nil || got[0].Message.Action != "get_devices" {
		t.Errorf("event 0 message = %+v, want get_devices", got[0].Message)
	}
	if got[2].StateChange == nil || got[2].StateChange.NewState != "active" {
		t.Errorf("event 2 state change = %+v", got[2].StateChange)
	}
	if got[3].Error == nil || got[3].Error.Message != "invalid JSON" {
		t.Errorf("event 3 error = %+v", got[3].Error)
	}
}

func TestFileLoggerAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.vlog")
	events := makeTestEvents()

	for _, e := range events[:2] {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(e)
		logger.Close()
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != 2 {
		t.Errorf("read %d events after two appends, want 2", count)
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.vlog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	// Log after close must not panic.
	logger.Log(makeTestEvents()[0])
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.vlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range makeTestEvents() {
		logger.Log(e)
	}
	logger.Close()

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"direction in", Filter{Direction: directionPtr(DirectionIn)}, 2},
		{"wire layer", Filter{Layer: layerPtr(LayerWire)}, 2},
		{"errors only", Filter{Category: categoryPtr(CategoryError)}, 1},
		{"by action", Filter{Action: "get_devices"}, 2},
		{"wrong session", Filter{SessionID: "other"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			count := 0
			for {
				if _, err := reader.Next(); err == io.EOF {
					break
				} else if err != nil {
					t.Fatalf("Next failed: %v", err)
				}
				count++
			}
			if count != tt.want {
				t.Errorf("matched %d events, want %d", count, tt.want)
			}
		})
	}
}

func directionPtr(d Direction) *Direction { return &d }
func layerPtr(l Layer) *Layer             { return &l }
func categoryPtr(c Category) *Category    { return &c }
