package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/znp-protocol/znp-go/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return export(reader, format, w)
}

func export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

var csvHeader = []string{"timestamp", "session_id", "firmware", "direction", "category", "operation", "item", "size", "message"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var op, item, size, message string
		switch {
		case event.Item != nil:
			op = event.Item.Operation.String()
			item = itemName(event.Item.ItemID, event.Item.SubID)
			size = strconv.Itoa(event.Item.Size)
		case event.Error != nil:
			op = event.Error.Operation.String()
			item = itemName(event.Error.ItemID, event.Error.SubID)
			message = event.Error.Message
		}

		row := []string{
			event.Timestamp.UTC().Format(timeFormat),
			event.SessionID,
			event.Firmware,
			event.Direction.String(),
			event.Category.String(),
			op,
			item,
			size,
			message,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
