package zigbee

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Sizes of the fixed-length values.
const (
	EUI64Size = 8
	KeySize   = 16
)

// ErrInvalidFormat is returned when parsing a malformed address or key.
var ErrInvalidFormat = errors.New("invalid format")

// EUI64 is an 8-byte IEEE extended address in serialized byte order.
type EUI64 [EUI64Size]byte

// ExtendedPanID shares the EUI64 representation.
type ExtendedPanID = EUI64

var (
	// ZeroEUI64 marks unused hashed-key slots.
	ZeroEUI64 = EUI64{}

	// BroadcastEUI64 is the all-ones address used by empty address-manager
	// slots and by the global security material entry.
	BroadcastEUI64 = EUI64{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
)

// ParseEUI64 parses "00:12:4b:00:1c:a1:b8:46" (or the same digits without
// separators) written most significant byte first.
func ParseEUI64(s string) (EUI64, error) {
	var e EUI64

	b, err := decodeSeparated(s)
	if err != nil {
		return e, fmt.Errorf("EUI64 %q: %w", s, err)
	}
	if len(b) != EUI64Size {
		return e, fmt.Errorf("EUI64 %q: %w: need %d bytes, got %d", s, ErrInvalidFormat, EUI64Size, len(b))
	}

	for i := range e {
		e[i] = b[EUI64Size-1-i]
	}
	return e, nil
}

// MustParseEUI64 is like ParseEUI64 but panics on error.
func MustParseEUI64(s string) EUI64 {
	e, err := ParseEUI64(s)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the big-endian colon notation.
func (e EUI64) String() string {
	parts := make([]string, EUI64Size)
	for i := range e {
		parts[i] = fmt.Sprintf("%02x", e[EUI64Size-1-i])
	}
	return strings.Join(parts, ":")
}

// IsZero reports whether every byte is zero.
func (e EUI64) IsZero() bool {
	return e == ZeroEUI64
}

// MarshalText implements encoding.TextMarshaler.
func (e EUI64) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EUI64) UnmarshalText(text []byte) error {
	v, err := ParseEUI64(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// NWK is a 16-bit network (short) address.
type NWK uint16

// NWKUnused is the short address of an unused address-manager slot.
const NWKUnused NWK = 0xFFFF

// String returns the address as 0xNNNN.
func (n NWK) String() string {
	return fmt.Sprintf("0x%04X", uint16(n))
}

// KeyData is a 16-byte AES-128 key.
type KeyData [KeySize]byte

// ParseKeyData parses a key written as 32 hex digits, optionally colon separated.
func ParseKeyData(s string) (KeyData, error) {
	var k KeyData

	b, err := decodeSeparated(s)
	if err != nil {
		return k, fmt.Errorf("key: %w", err)
	}
	if len(b) != KeySize {
		return k, fmt.Errorf("key: %w: need %d bytes, got %d", ErrInvalidFormat, KeySize, len(b))
	}

	copy(k[:], b)
	return k, nil
}

// String returns the key as colon separated hex in storage order.
func (k KeyData) String() string {
	parts := make([]string, KeySize)
	for i, b := range k {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// MarshalText implements encoding.TextMarshaler.
func (k KeyData) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *KeyData) UnmarshalText(text []byte) error {
	v, err := ParseKeyData(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func decodeSeparated(s string) ([]byte, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return b, nil
}
