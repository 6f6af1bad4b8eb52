package log

import (
	"bytes"
	"testing"
)

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{CategoryItem.String(), "ITEM"},
		{CategoryError.String(), "ERROR"},
		{Category(9).String(), "UNKNOWN"},
		{OperationRead.String(), "READ"},
		{OperationWrite.String(), "WRITE"},
		{Operation(9).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestCapture(t *testing.T) {
	t.Run("Short", func(t *testing.T) {
		in := []byte{1, 2, 3}
		got, truncated := Capture(in)
		if truncated {
			t.Error("truncated = true for short data")
		}
		if !bytes.Equal(got, in) {
			t.Errorf("Capture() = %x, want %x", got, in)
		}

		// The capture does not alias the caller's buffer.
		in[0] = 0xFF
		if got[0] != 1 {
			t.Error("Capture() aliases its input")
		}
	})

	t.Run("Long", func(t *testing.T) {
		in := bytes.Repeat([]byte{0xAB}, MaxDataSize+10)
		got, truncated := Capture(in)
		if !truncated {
			t.Error("truncated = false for long data")
		}
		if len(got) != MaxDataSize {
			t.Errorf("len = %d, want %d", len(got), MaxDataSize)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		got, truncated := Capture(nil)
		if truncated || len(got) != 0 {
			t.Errorf("Capture(nil) = %x, %v", got, truncated)
		}
	})
}
