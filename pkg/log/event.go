package log

import (
	"time"
)

// MaxDataSize is the number of item bytes captured per event; longer values
// are truncated.
const MaxDataSize = 256

// Event represents one NVRAM exchange with the radio.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the exchange completed (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the NVRAM session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates data flow relative to the host.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Firmware is the Z-Stack generation of the session ("3.30").
	Firmware string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Item  *ItemEvent      `cbor:"6,keyasint,omitempty"`
	Error *ErrorEventData `cbor:"7,keyasint,omitempty"`
}

// Direction indicates the direction of data flow.
type Direction uint8

const (
	// DirectionIn indicates data read from the radio.
	DirectionIn Direction = 0
	// DirectionOut indicates data written to the radio.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryItem indicates a completed item exchange.
	CategoryItem Category = 0
	// CategoryError indicates a failed exchange.
	CategoryError Category = 1
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryItem:
		return "ITEM"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Operation is the NVRAM command that was issued.
type Operation uint8

const (
	OperationRead  Operation = 0
	OperationWrite Operation = 1
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OperationRead:
		return "READ"
	case OperationWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// ItemEvent captures one item exchange.
type ItemEvent struct {
	Operation Operation `cbor:"1,keyasint"`

	// ItemID is the extended item id; 0 is the legacy OSAL item.
	ItemID uint16 `cbor:"2,keyasint"`

	// SubID is the OSAL id for legacy items, the ordinal otherwise.
	SubID uint16 `cbor:"3,keyasint"`

	// Size is the value length in bytes.
	Size int `cbor:"4,keyasint"`

	// Data is the raw value (absent when capture is disabled, may be truncated).
	Data []byte `cbor:"5,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"6,keyasint,omitempty"`
}

// ErrorEventData captures a failed exchange.
type ErrorEventData struct {
	Operation Operation `cbor:"1,keyasint"`
	ItemID    uint16    `cbor:"2,keyasint"`
	SubID     uint16    `cbor:"3,keyasint"`

	// Message is the error message.
	Message string `cbor:"4,keyasint"`

	// Code is the Z-Stack status code (if the radio returned one).
	Code *int `cbor:"5,keyasint,omitempty"`
}

// Capture returns data limited to MaxDataSize and whether it was cut.
func Capture(data []byte) ([]byte, bool) {
	if len(data) <= MaxDataSize {
		return append([]byte(nil), data...), false
	}
	return append([]byte(nil), data[:MaxDataSize]...), true
}
