// Package commands implements the znp-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/znp-protocol/znp-go/pkg/log"
	"github.com/znp-protocol/znp-go/pkg/nvram"
)

const timeFormat = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] DIRECTION Operation item sub-id
	ts := event.Timestamp.UTC().Format(timeFormat)
	session := shortenSessionID(event.SessionID)

	var (
		label string
		op    log.Operation
		item  uint16
		sub   uint16
	)
	switch {
	case event.Item != nil:
		label, op, item, sub = "Item", event.Item.Operation, event.Item.ItemID, event.Item.SubID
	case event.Error != nil:
		label, op, item, sub = "Error", event.Error.Operation, event.Error.ItemID, event.Error.SubID
	default:
		label = "Unknown"
	}

	fmt.Fprintf(w, "%s [session:%s] %-3s %s %s %s\n", ts, session, event.Direction, label, op, itemName(item, sub))

	switch {
	case event.Item != nil:
		formatItemDetails(w, event.Item)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// itemName renders an item address the way backup documents name it.
func itemName(item, sub uint16) string {
	id := nvram.ItemID(item)
	if id == nvram.ItemLegacy {
		return nvram.OsalID(sub).String()
	}
	return fmt.Sprintf("%s[%d]", id, sub)
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatItemDetails(w io.Writer, item *log.ItemEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", item.Size)
	if len(item.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(item.Data))
		if item.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: 0x%02X\n", *err.Code)
	}
}

// Criteria holds the event selection flags shared by view and filter.
type Criteria struct {
	Session   string
	Direction string
	Category  string
	Operation string
	Item      string
	TimeStart string
	TimeEnd   string
}

// BuildFilter converts flag values into a log filter.
func (o Criteria) BuildFilter() (log.Filter, error) {
	filter := log.Filter{SessionID: o.Session}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if o.Operation != "" {
		op, err := parseOperation(o.Operation)
		if err != nil {
			return filter, err
		}
		filter.Operation = &op
	}
	if o.Item != "" {
		item, err := parseItem(o.Item)
		if err != nil {
			return filter, err
		}
		filter.ItemID = &item
	}
	return filter, nil
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "item":
		return log.CategoryItem, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be item or error)", s)
	}
}

// parseOperation parses an operation string (case-insensitive).
func parseOperation(s string) (log.Operation, error) {
	switch strings.ToLower(s) {
	case "read":
		return log.OperationRead, nil
	case "write":
		return log.OperationWrite, nil
	default:
		return 0, fmt.Errorf("invalid operation: %s (must be read or write)", s)
	}
}

// parseItem accepts an item name (TCLK_TABLE) or a number.
func parseItem(s string) (uint16, error) {
	if id, err := nvram.ParseItemID(strings.ToUpper(s)); err == nil {
		return uint16(id), nil
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid item: %s", s)
	}
	return uint16(v), nil
}

// RunView executes the view command.
func RunView(path string, opts Criteria, output io.Writer) error {
	filter, err := opts.BuildFilter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for event, err := range reader.Events() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
