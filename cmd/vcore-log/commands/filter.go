package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/Giovanni-Lovison/VCore/pkg/log"
)

// FilterOptions specifies criteria for the filter command.
type FilterOptions struct {
	Output    string
	SessionID string
	Action    string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// RunFilter reads a trace file and writes the matching events to a new
// trace file.
func RunFilter(path string, opts FilterOptions) error {
	filter := log.Filter{
		SessionID: opts.SessionID,
		Action:    opts.Action,
	}

	if opts.Layer != "" {
		l, err := ParseLayerFlag(opts.Layer)
		if err != nil {
			return err
		}
		filter.Layer = &l
	}
	if opts.Direction != "" {
		d, err := ParseDirectionFlag(opts.Direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}
	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return err
		}
		filter.Category = &c
	}
	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return fmt.Errorf("invalid time-start: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return fmt.Errorf("invalid time-end: %w", err)
		}
		filter.TimeEnd = &t
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	writer, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer writer.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		writer.Log(event)
		count++
	}

	fmt.Printf("Wrote %d events to %s\n", count, opts.Output)
	return nil
}
