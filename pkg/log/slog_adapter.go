package log

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func hex16(v uint16) string {
	return fmt.Sprintf("0x%04X", v)
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Firmware != "" {
		attrs = append(attrs, slog.String("firmware", event.Firmware))
	}

	switch {
	case event.Item != nil:
		attrs = append(attrs,
			slog.String("op", event.Item.Operation.String()),
			slog.String("item", hex16(event.Item.ItemID)),
			slog.String("sub_id", hex16(event.Item.SubID)),
			slog.Int("size", event.Item.Size),
		)
		if len(event.Item.Data) > 0 {
			attrs = append(attrs, slog.String("data", hex.EncodeToString(event.Item.Data)))
		}
		if event.Item.Truncated {
			attrs = append(attrs, slog.Bool("truncated", true))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("op", event.Error.Operation.String()),
			slog.String("item", hex16(event.Error.ItemID)),
			slog.String("sub_id", hex16(event.Error.SubID)),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "nvram", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
