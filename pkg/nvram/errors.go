package nvram

import (
	"errors"
	"fmt"

	"github.com/znp-protocol/znp-go/pkg/version"
	"github.com/znp-protocol/znp-go/pkg/wire"
)

// NVRAM errors.
var (
	ErrItemNotFound     = errors.New("nvram item not found")
	ErrSecurity         = errors.New("nvram item disclosure refused")
	ErrDataCorruption   = errors.New("nvram data corruption")
	ErrCapacityExceeded = errors.New("nvram table capacity exceeded")
	ErrUnknownTable     = errors.New("table not present in layout")
	ErrRecordSize       = errors.New("record size mismatch")

	// ErrUnsupportedFirmware is returned for firmware without a layout.
	ErrUnsupportedFirmware = version.ErrUnsupportedFirmware
)

// StatusError is a non-success Z-Stack status returned for an NV command.
// It matches ErrItemNotFound and ErrSecurity with errors.Is where the status
// has that meaning.
type StatusError struct {
	Op     string
	Item   ItemID
	SubID  uint16
	Status wire.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nvram %s %s:0x%04X: status %s", e.Op, e.Item, e.SubID, e.Status)
}

// Is maps item-level statuses onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrItemNotFound:
		return e.Status == wire.StatusNVItemUninit
	case ErrSecurity:
		return e.Status == wire.StatusNotAuthorized
	}
	return false
}

// StatusToError converts the status of an NV command response. It returns
// nil for SUCCESS.
func StatusToError(status wire.Status, op string, item ItemID, subID uint16) error {
	if status.IsSuccess() {
		return nil
	}
	return &StatusError{Op: op, Item: item, SubID: subID, Status: status}
}

// CapacityError reports a table write that does not fit.
type CapacityError struct {
	Table string
	Need  int
	Have  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: table %s needs %d, has %d", ErrCapacityExceeded, e.Table, e.Need, e.Have)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}
