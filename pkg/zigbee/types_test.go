package zigbee

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseEUI64_ByteOrder(t *testing.T) {
	e, err := ParseEUI64("00:01:02:03:04:05:06:07")
	if err != nil {
		t.Fatalf("ParseEUI64() error = %v", err)
	}

	want := EUI64{0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, 0x00}
	if e != want {
		t.Errorf("ParseEUI64() = %x, want %x", e[:], want[:])
	}
	if got := e.String(); got != "00:01:02:03:04:05:06:07" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseEUI64_Invalid(t *testing.T) {
	tests := []string{
		"",
		"00:01:02",
		"zz:01:02:03:04:05:06:07",
		"00:01:02:03:04:05:06:07:08",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseEUI64(input)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("ParseEUI64(%q) error = %v, want ErrInvalidFormat", input, err)
			}
		})
	}
}

func TestEUI64_JSON(t *testing.T) {
	in := MustParseEUI64("00:12:4b:00:1c:a1:b8:46")

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"00:12:4b:00:1c:a1:b8:46"` {
		t.Errorf("Marshal() = %s", data)
	}

	var out EUI64
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out != in {
		t.Errorf("Unmarshal() = %v, want %v", out, in)
	}
}

func TestEUI64_IsZero(t *testing.T) {
	if !ZeroEUI64.IsZero() {
		t.Error("ZeroEUI64.IsZero() = false")
	}
	if BroadcastEUI64.IsZero() {
		t.Error("BroadcastEUI64.IsZero() = true")
	}
}

func TestNWK_String(t *testing.T) {
	if got := NWK(0x1a2b).String(); got != "0x1A2B" {
		t.Errorf("String() = %q, want 0x1A2B", got)
	}
}

func TestParseKeyData(t *testing.T) {
	k, err := ParseKeyData("000102030405060708090a0b0c0d0e0f")
	if err != nil {
		t.Fatalf("ParseKeyData() error = %v", err)
	}
	for i, b := range k {
		if b != byte(i) {
			t.Fatalf("k[%d] = %#x, want %#x", i, b, i)
		}
	}

	again, err := ParseKeyData(k.String())
	if err != nil {
		t.Fatalf("ParseKeyData(String()) error = %v", err)
	}
	if again != k {
		t.Errorf("round trip = %v, want %v", again, k)
	}

	if _, err := ParseKeyData("0001"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("short key error = %v, want ErrInvalidFormat", err)
	}
}
