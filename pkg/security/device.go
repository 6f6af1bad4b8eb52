package security

import (
	"errors"
	"fmt"

	"github.com/znp-protocol/znp-go/pkg/tclk"
	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// Registry errors.
var (
	ErrInvalidDevice      = errors.New("invalid device")
	ErrNoSecurityMaterial = errors.New("no security material entry for this network")
)

// StoredDevice is one device known to the Trust Center.
type StoredDevice struct {
	IEEE zigbee.EUI64 `json:"ieee"`
	NWK  zigbee.NWK   `json:"nwk"`

	// HashedLinkKeyShift is set when the key is derivable from the current
	// seed. It is always recomputed, never taken from storage.
	HashedLinkKeyShift *uint8          `json:"hashed_link_key_shift,omitempty"`
	APSLinkKey         *zigbee.KeyData `json:"aps_link_key,omitempty"`

	TxCounter *uint32 `json:"tx_counter,omitempty"`
	RxCounter *uint32 `json:"rx_counter,omitempty"`
}

// HasKey reports whether the device has a link key.
func (d StoredDevice) HasKey() bool {
	return d.APSLinkKey != nil
}

// Validate checks the field invariants of the device.
func (d StoredDevice) Validate() error {
	if d.HashedLinkKeyShift != nil {
		if d.APSLinkKey == nil {
			return fmt.Errorf("%w: %s: seed shift without a link key", ErrInvalidDevice, d.IEEE)
		}
		if *d.HashedLinkKeyShift > tclk.MaxShift {
			return fmt.Errorf("%w: %s: seed shift %d out of range", ErrInvalidDevice, d.IEEE, *d.HashedLinkKeyShift)
		}
	}
	if d.APSLinkKey != nil && (d.TxCounter == nil || d.RxCounter == nil) {
		return fmt.Errorf("%w: %s: link key without frame counters", ErrInvalidDevice, d.IEEE)
	}
	return nil
}

// WithKey returns a copy of d holding key and its frame counters.
func (d StoredDevice) WithKey(key zigbee.KeyData, tx, rx uint32) StoredDevice {
	d.APSLinkKey = &key
	d.TxCounter = &tx
	d.RxCounter = &rx
	d.HashedLinkKeyShift = nil
	return d
}

func (d StoredDevice) withShift(shift uint8) StoredDevice {
	d.HashedLinkKeyShift = &shift
	return d
}
