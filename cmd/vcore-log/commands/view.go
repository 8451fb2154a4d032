// Package commands implements the vcore-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/Giovanni-Lovison/VCore/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	Action    string
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		Direction: filter.Direction,
		Layer:     filter.Layer,
		Category:  filter.Category,
		Action:    filter.Action,
	})
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	session := shortenSessionID(event.SessionID)

	var typeLabel string
	switch {
	case event.Message != nil:
		typeLabel = event.Message.Action
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	case event.Line != nil:
		typeLabel = "Line"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [%s] %-5s %-9s %s\n", ts, session, event.Direction.String(), event.Layer.String(), typeLabel)

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatMessageDetails writes message-specific details.
func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	if msg.Status != "" {
		fmt.Fprintf(w, "  Status: %s\n", msg.Status)
	}
	if len(msg.Payload) > 0 {
		fmt.Fprintf(w, "  Payload: %s\n", string(msg.Payload))
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details, including the dropped raw line
// when the error carries one.
func formatErrorDetails(w io.Writer, event log.Event) {
	fmt.Fprintf(w, "  Layer: %s\n", event.Error.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", event.Error.Message)
	if event.Error.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", event.Error.Context)
	}
	if event.Line != nil && len(event.Line.Data) > 0 {
		fmt.Fprintf(w, "  Line: %q", event.Line.Data)
		if event.Line.Truncated {
			fmt.Fprintf(w, " (truncated, %d bytes)", event.Line.Size)
		}
		fmt.Fprintln(w)
	}
}

// ParseLayerFlag parses a layer string from a command-line flag
// (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or session)", s)
	}
}

// ParseDirectionFlag parses a direction string from a command-line flag
// (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	case "local":
		return log.DirectionLocal, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in, out, or local)", s)
	}
}

// ParseCategoryFlag parses a category string from a command-line flag
// (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}
