package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// padByte fills alignment gaps.
const padByte = 0xFF

// Codec errors.
var (
	ErrShortRecord  = errors.New("record data too short")
	ErrTrailingData = errors.New("unexpected trailing data after record")
)

// Record is implemented by every NVRAM structure.
//
// MarshalNV and UnmarshalNV describe the field sequence once; alignment and
// bounds checking are handled by the Encoder and Decoder.
type Record interface {
	MarshalNV(e *Encoder)
	UnmarshalNV(d *Decoder)
}

// Encoder serializes record fields.
type Encoder struct {
	buf      []byte
	align    bool
	maxAlign int
}

// NewEncoder creates an encoder. With align set, fields are naturally aligned.
func NewEncoder(align bool) *Encoder {
	return &Encoder{align: align, maxAlign: 1}
}

func (e *Encoder) pad(n int) {
	if !e.align {
		return
	}
	if n > e.maxAlign {
		e.maxAlign = n
	}
	for len(e.buf)%n != 0 {
		e.buf = append(e.buf, padByte)
	}
}

// Uint8 appends a byte.
func (e *Encoder) Uint8(v uint8) {
	e.buf = append(e.buf, v)
}

// Uint16 appends a little-endian uint16.
func (e *Encoder) Uint16(v uint16) {
	e.pad(2)
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// Uint32 appends a little-endian uint32.
func (e *Encoder) Uint32(v uint32) {
	e.pad(4)
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// Bytes appends raw bytes (addresses, keys). Byte arrays are 1-aligned.
func (e *Encoder) Bytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// Record appends a nested record, aligned as a unit.
func (e *Encoder) Record(r Record) {
	sub := NewEncoder(e.align)
	r.MarshalNV(sub)
	sub.finish()

	e.pad(sub.maxAlign)
	e.buf = append(e.buf, sub.buf...)
}

func (e *Encoder) finish() {
	e.pad(e.maxAlign)
}

// Decoder reads record fields. The first error sticks; later reads return zero values.
type Decoder struct {
	data     []byte
	off      int
	align    bool
	maxAlign int
	err      error
}

// NewDecoder creates a decoder over data.
func NewDecoder(data []byte, align bool) *Decoder {
	return &Decoder{data: data, align: align, maxAlign: 1}
}

func (d *Decoder) skip(n int) {
	if !d.align {
		return
	}
	if n > d.maxAlign {
		d.maxAlign = n
	}
	for d.off%n != 0 {
		d.off++
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.data) {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortRecord, n, d.off, len(d.data))
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

// Uint8 reads a byte.
func (d *Decoder) Uint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Uint16 reads a little-endian uint16.
func (d *Decoder) Uint16() uint16 {
	d.skip(2)
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Uint32 reads a little-endian uint32.
func (d *Decoder) Uint32() uint32 {
	d.skip(4)
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// Bytes fills dst.
func (d *Decoder) Bytes(dst []byte) {
	b := d.take(len(dst))
	if b != nil {
		copy(dst, b)
	}
}

// Record reads a nested record.
func (d *Decoder) Record(r Record) {
	if d.err != nil {
		return
	}

	// The nested alignment is only known after a dry run over its fields.
	probe := NewEncoder(d.align)
	r.MarshalNV(probe)
	probe.finish()
	d.skip(probe.maxAlign)

	sub := NewDecoder(d.data[min(d.off, len(d.data)):], d.align)
	r.UnmarshalNV(sub)
	sub.finish()
	if sub.err != nil {
		d.err = sub.err
		return
	}
	d.off += sub.off
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return max(len(d.data)-d.off, 0)
}

// Err returns the first decoding error.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) finish() {
	d.skip(d.maxAlign)
	if d.err == nil && d.off > len(d.data) {
		d.err = fmt.Errorf("%w: trailing padding missing", ErrShortRecord)
	}
}

// Marshal serializes r.
func Marshal(r Record, align bool) []byte {
	e := NewEncoder(align)
	r.MarshalNV(e)
	e.finish()
	return e.buf
}

// Unmarshal decodes exactly one record from data.
func Unmarshal(data []byte, r Record, align bool) error {
	rest, err := UnmarshalPrefix(data, r, align)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("%w: %d bytes", ErrTrailingData, len(rest))
	}
	return nil
}

// UnmarshalPrefix decodes one record from the start of data and returns the rest.
func UnmarshalPrefix(data []byte, r Record, align bool) ([]byte, error) {
	d := NewDecoder(data, align)
	r.UnmarshalNV(d)
	d.finish()
	if d.err != nil {
		return nil, d.err
	}
	return data[d.off:], nil
}

// Size returns the serialized size of r's type.
func Size(r Record, align bool) int {
	return len(Marshal(r, align))
}
