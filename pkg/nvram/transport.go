package nvram

import (
	"context"
	"errors"
	"time"

	"github.com/znp-protocol/znp-go/pkg/log"
)

// Transport performs single NV item exchanges with the radio.
//
// Read fails with an error matching ErrItemNotFound for absent items and
// ErrSecurity for undisclosable ones (a *StatusError built with StatusToError
// satisfies both). Write creates or replaces the item; the length may change.
// Large values are chunked by the transport.
type Transport interface {
	Read(ctx context.Context, item ItemID, subID uint16) ([]byte, error)
	Write(ctx context.Context, item ItemID, subID uint16, value []byte) error
}

// tracedTransport reports every exchange of a session to its event logger.
type tracedTransport struct {
	inner    Transport
	logger   log.Logger
	session  string
	firmware string
	capture  bool
}

func (t *tracedTransport) Read(ctx context.Context, item ItemID, subID uint16) ([]byte, error) {
	data, err := t.inner.Read(ctx, item, subID)
	t.emit(log.DirectionIn, log.OperationRead, item, subID, data, err)
	return data, err
}

func (t *tracedTransport) Write(ctx context.Context, item ItemID, subID uint16, value []byte) error {
	err := t.inner.Write(ctx, item, subID, value)
	t.emit(log.DirectionOut, log.OperationWrite, item, subID, value, err)
	return err
}

func (t *tracedTransport) emit(dir log.Direction, op log.Operation, item ItemID, subID uint16, data []byte, err error) {
	event := log.Event{
		Timestamp: time.Now(),
		SessionID: t.session,
		Direction: dir,
		Firmware:  t.firmware,
	}

	if err != nil {
		event.Category = log.CategoryError
		event.Error = &log.ErrorEventData{
			Operation: op,
			ItemID:    uint16(item),
			SubID:     subID,
			Message:   err.Error(),
		}
		var se *StatusError
		if errors.As(err, &se) {
			code := int(se.Status)
			event.Error.Code = &code
		}
		t.logger.Log(event)
		return
	}

	event.Category = log.CategoryItem
	event.Item = &log.ItemEvent{
		Operation: op,
		ItemID:    uint16(item),
		SubID:     subID,
		Size:      len(data),
	}
	if t.capture {
		event.Item.Data, event.Item.Truncated = log.Capture(data)
	}
	t.logger.Log(event)
}
