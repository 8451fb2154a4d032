package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Giovanni-Lovison/VCore/pkg/log"
)

// RunExport converts a trace file to jsonl or csv.
func RunExport(path, format, output string) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(path, w)
	case "csv":
		return exportCSV(path, w)
	default:
		return fmt.Errorf("unknown format: %s (must be jsonl or csv)", format)
	}
}

// exportJSONL writes one JSON record per event.
func exportJSONL(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	enc := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

// exportCSV writes a flat table with one row per event.
func exportCSV(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session", "direction", "layer", "category", "action", "status", "detail"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return err
		}
	}
}

func csvRow(event log.Event) []string {
	var action, status, detail string
	switch {
	case event.Message != nil:
		action = event.Message.Action
		status = event.Message.Status
	case event.StateChange != nil:
		detail = fmt.Sprintf("%s: %s -> %s", event.StateChange.Entity, event.StateChange.OldState, event.StateChange.NewState)
	case event.Error != nil:
		detail = event.Error.Message
	}

	return []string{
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		event.SessionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		action,
		status,
		detail,
	}
}
