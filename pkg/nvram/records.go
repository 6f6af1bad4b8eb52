package nvram

import (
	"context"
	"fmt"
	"iter"

	"github.com/znp-protocol/znp-go/pkg/wire"
)

// recordPtr constrains P to a pointer to T implementing wire.Record.
type recordPtr[T any] interface {
	*T
	wire.Record
}

// RecordSize returns the stored size of T under the session's alignment.
func RecordSize[T any, P recordPtr[T]](n *NVRAM) int {
	var zero T
	return wire.Size(P(&zero), n.Profile().AlignStructs)
}

// ReadRecords yields the decoded records of a table. Records that do not
// decode are reported as ErrDataCorruption and end the sequence.
func ReadRecords[T any, P recordPtr[T]](ctx context.Context, n *NVRAM, table string) iter.Seq2[T, error] {
	align := n.Profile().AlignStructs
	size := RecordSize[T, P](n)

	return func(yield func(T, error) bool) {
		i := 0
		for data, err := range n.ReadTable(ctx, table, size) {
			var rec T
			if err != nil {
				yield(rec, err)
				return
			}
			if err := wire.Unmarshal(data, P(&rec), align); err != nil {
				yield(rec, fmt.Errorf("%w: %s record %d: %v", ErrDataCorruption, table, i, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
			i++
		}
	}
}

// CollectRecords reads a whole table.
func CollectRecords[T any, P recordPtr[T]](ctx context.Context, n *NVRAM, table string) ([]T, error) {
	var out []T
	for rec, err := range ReadRecords[T, P](ctx, n, table) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// WriteRecords encodes values and fill and replaces the table contents.
func WriteRecords[T any, P recordPtr[T]](ctx context.Context, n *NVRAM, table string, values []T, fill T) error {
	align := n.Profile().AlignStructs

	raw := make([][]byte, len(values))
	for i := range values {
		raw[i] = wire.Marshal(P(&values[i]), align)
	}
	return n.WriteTable(ctx, table, raw, wire.Marshal(P(&fill), align))
}

// WriteRecordAt encodes value and stores it at one existing ordinal of a table.
func WriteRecordAt[T any, P recordPtr[T]](ctx context.Context, n *NVRAM, table string, index int, value T) error {
	return n.WriteTableSlot(ctx, table, index, wire.Marshal(P(&value), n.Profile().AlignStructs))
}

// TableCapacityOf returns the number of existing slots of a table of T.
func TableCapacityOf[T any, P recordPtr[T]](ctx context.Context, n *NVRAM, table string) (int, error) {
	return n.TableCapacity(ctx, table, RecordSize[T, P](n))
}

// OsalReadRecord reads and decodes a legacy OSAL item.
func OsalReadRecord[T any, P recordPtr[T]](ctx context.Context, n *NVRAM, id OsalID) (T, error) {
	var rec T
	data, err := n.OsalRead(ctx, id)
	if err != nil {
		return rec, err
	}
	if err := wire.Unmarshal(data, P(&rec), n.Profile().AlignStructs); err != nil {
		return rec, fmt.Errorf("%w: %s: %v", ErrDataCorruption, id, err)
	}
	return rec, nil
}

// OsalWriteRecord encodes and writes a legacy OSAL item.
func OsalWriteRecord[T any, P recordPtr[T]](ctx context.Context, n *NVRAM, id OsalID, rec *T) error {
	return n.OsalWrite(ctx, id, wire.Marshal(P(rec), n.Profile().AlignStructs))
}
