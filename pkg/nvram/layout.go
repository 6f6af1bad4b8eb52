package nvram

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/znp-protocol/znp-go/pkg/version"
)

// Layout is the NVRAM storage strategy of one firmware generation. It is
// selected once per session; table-shaped operations never inspect the
// firmware version themselves.
type Layout interface {
	Firmware() version.Firmware
	Profile() version.Profile

	// Table returns where the named table lives, if the generation has it.
	Table(name string) (version.TableSpec, bool)

	ReadItem(ctx context.Context, tr Transport, item ItemID, subID uint16) ([]byte, error)
	WriteItem(ctx context.Context, tr Transport, item ItemID, subID uint16, value []byte) error

	// ReadTable yields the raw records of a table in ordinal order.
	ReadTable(ctx context.Context, tr Transport, table string, recordSize int) iter.Seq2[[]byte, error]

	// WriteTable stores values at ordinals [0, len(values)) and fill in every
	// remaining existing slot. It writes nothing when values do not fit.
	WriteTable(ctx context.Context, tr Transport, table string, values [][]byte, fill []byte) error

	// WriteSlot replaces the record at one existing ordinal of a table.
	WriteSlot(ctx context.Context, tr Transport, table string, index int, value []byte) error

	// Capacity returns the number of existing slots of a table.
	Capacity(ctx context.Context, tr Transport, table string, recordSize int) (int, error)
}

// tableStore implements one addressing scheme.
type tableStore interface {
	read(ctx context.Context, tr Transport, recordSize int) iter.Seq2[[]byte, error]
	capacity(ctx context.Context, tr Transport, recordSize int) (int, error)
	write(ctx context.Context, tr Transport, slots int, values [][]byte, fill []byte) error
	writeSlot(ctx context.Context, tr Transport, index int, value []byte) error
}

// ManifestLayout is a Layout described by an embedded layout manifest.
type ManifestLayout struct {
	fw       version.Firmware
	manifest *version.LayoutManifest
	stores   map[string]tableStore
}

// LayoutFor returns the layout of a supported firmware generation.
func LayoutFor(fw version.Firmware) (*ManifestLayout, error) {
	m, err := version.LoadLayout(fw)
	if err != nil {
		return nil, err
	}
	return NewManifestLayout(fw, m)
}

// NewManifestLayout builds a layout from a manifest.
func NewManifestLayout(fw version.Firmware, m *version.LayoutManifest) (*ManifestLayout, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	l := &ManifestLayout{
		fw:       fw,
		manifest: m,
		stores:   make(map[string]tableStore, len(m.Tables)),
	}
	for name, ts := range m.Tables {
		switch ts.Kind {
		case version.KindOsalRange:
			l.stores[name] = &slotStore{
				item:  ItemLegacy,
				first: ts.Start,
				count: int(ts.End-ts.Start) + 1,
			}
		case version.KindExNv:
			l.stores[name] = &slotStore{item: ItemID(ts.Item), count: 1 << 16}
		case version.KindOsalArray:
			l.stores[name] = &arrayStore{id: OsalID(ts.Item)}
		}
	}
	return l, nil
}

// Firmware returns the generation this layout describes.
func (l *ManifestLayout) Firmware() version.Firmware { return l.fw }

// Profile returns the generation-wide storage properties.
func (l *ManifestLayout) Profile() version.Profile { return l.manifest.Profile }

// Table returns the manifest entry of a table.
func (l *ManifestLayout) Table(name string) (version.TableSpec, bool) {
	return l.manifest.Table(name)
}

func (l *ManifestLayout) checkItem(item ItemID) error {
	if item != ItemLegacy && !l.manifest.Profile.ExtendedItems {
		return fmt.Errorf("%w: item %s on Z-Stack %s", ErrUnsupportedFirmware, item, l.fw)
	}
	return nil
}

// ReadItem reads one item.
func (l *ManifestLayout) ReadItem(ctx context.Context, tr Transport, item ItemID, subID uint16) ([]byte, error) {
	if err := l.checkItem(item); err != nil {
		return nil, err
	}
	return tr.Read(ctx, item, subID)
}

// WriteItem creates or replaces one item.
func (l *ManifestLayout) WriteItem(ctx context.Context, tr Transport, item ItemID, subID uint16, value []byte) error {
	if err := l.checkItem(item); err != nil {
		return err
	}
	return tr.Write(ctx, item, subID, value)
}

func (l *ManifestLayout) store(table string) (tableStore, error) {
	s, ok := l.stores[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s on Z-Stack %s", ErrUnknownTable, table, l.fw)
	}
	return s, nil
}

// ReadTable yields the raw records of a table.
func (l *ManifestLayout) ReadTable(ctx context.Context, tr Transport, table string, recordSize int) iter.Seq2[[]byte, error] {
	s, err := l.store(table)
	if err != nil {
		return func(yield func([]byte, error) bool) { yield(nil, err) }
	}
	return s.read(ctx, tr, recordSize)
}

// Capacity returns the number of existing slots of a table.
func (l *ManifestLayout) Capacity(ctx context.Context, tr Transport, table string, recordSize int) (int, error) {
	s, err := l.store(table)
	if err != nil {
		return 0, err
	}
	return s.capacity(ctx, tr, recordSize)
}

// WriteTable replaces the contents of a table.
func (l *ManifestLayout) WriteTable(ctx context.Context, tr Transport, table string, values [][]byte, fill []byte) error {
	s, err := l.store(table)
	if err != nil {
		return err
	}
	if len(fill) == 0 {
		return fmt.Errorf("%w: empty fill record for %s", ErrRecordSize, table)
	}
	for i, v := range values {
		if len(v) != len(fill) {
			return fmt.Errorf("%w: %s record %d is %d bytes, fill is %d", ErrRecordSize, table, i, len(v), len(fill))
		}
	}

	slots, err := s.capacity(ctx, tr, len(fill))
	if err != nil {
		return fmt.Errorf("reading %s capacity: %w", table, err)
	}
	if len(values) > slots {
		return &CapacityError{Table: table, Need: len(values), Have: slots}
	}
	return s.write(ctx, tr, slots, values, fill)
}

// WriteSlot replaces the record at one existing ordinal of a table.
func (l *ManifestLayout) WriteSlot(ctx context.Context, tr Transport, table string, index int, value []byte) error {
	s, err := l.store(table)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		return fmt.Errorf("%w: empty record for %s", ErrRecordSize, table)
	}
	slots, err := s.capacity(ctx, tr, len(value))
	if err != nil {
		return fmt.Errorf("reading %s capacity: %w", table, err)
	}
	if index < 0 || index >= slots {
		return &CapacityError{Table: table, Need: index + 1, Have: slots}
	}
	return s.writeSlot(ctx, tr, index, value)
}

// slotStore keeps one record per item: consecutive OSAL ids of the legacy
// item, or ordinals of an extended item. A table ends at its first missing slot.
type slotStore struct {
	item  ItemID
	first uint16
	count int
}

func (s *slotStore) subID(i int) uint16 {
	return s.first + uint16(i)
}

func (s *slotStore) read(ctx context.Context, tr Transport, _ int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for i := range s.count {
			data, err := tr.Read(ctx, s.item, s.subID(i))
			if errors.Is(err, ErrItemNotFound) {
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("reading %s:0x%04X: %w", s.item, s.subID(i), err))
				return
			}
			if !yield(data, nil) {
				return
			}
		}
	}
}

// capacity counts slots up to the first missing one. A slot that refuses
// disclosure exists, so it counts.
func (s *slotStore) capacity(ctx context.Context, tr Transport, _ int) (int, error) {
	n := 0
	for i := range s.count {
		_, err := tr.Read(ctx, s.item, s.subID(i))
		if errors.Is(err, ErrItemNotFound) {
			break
		}
		if err != nil && !errors.Is(err, ErrSecurity) {
			return 0, fmt.Errorf("reading %s:0x%04X: %w", s.item, s.subID(i), err)
		}
		n++
	}
	return n, nil
}

func (s *slotStore) write(ctx context.Context, tr Transport, slots int, values [][]byte, fill []byte) error {
	for i := range slots {
		v := fill
		if i < len(values) {
			v = values[i]
		}
		if err := tr.Write(ctx, s.item, s.subID(i), v); err != nil {
			return fmt.Errorf("writing %s:0x%04X: %w", s.item, s.subID(i), err)
		}
	}
	return nil
}

func (s *slotStore) writeSlot(ctx context.Context, tr Transport, index int, value []byte) error {
	if err := tr.Write(ctx, s.item, s.subID(index), value); err != nil {
		return fmt.Errorf("writing %s:0x%04X: %w", s.item, s.subID(index), err)
	}
	return nil
}

// arrayStore packs every record into one OSAL item whose size is fixed at
// firmware build time.
type arrayStore struct {
	id OsalID
}

func (s *arrayStore) load(ctx context.Context, tr Transport, recordSize int) ([]byte, error) {
	if recordSize <= 0 {
		return nil, fmt.Errorf("%w: record size %d", ErrRecordSize, recordSize)
	}
	data, err := tr.Read(ctx, ItemLegacy, uint16(s.id))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.id, err)
	}
	if len(data)%recordSize != 0 {
		return nil, fmt.Errorf("%w: %s is %d bytes, not a multiple of %d", ErrDataCorruption, s.id, len(data), recordSize)
	}
	return data, nil
}

func (s *arrayStore) read(ctx context.Context, tr Transport, recordSize int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		data, err := s.load(ctx, tr, recordSize)
		if err != nil {
			yield(nil, err)
			return
		}
		for off := 0; off < len(data); off += recordSize {
			if !yield(data[off:off+recordSize], nil) {
				return
			}
		}
	}
}

func (s *arrayStore) capacity(ctx context.Context, tr Transport, recordSize int) (int, error) {
	data, err := s.load(ctx, tr, recordSize)
	if err != nil {
		return 0, err
	}
	return len(data) / recordSize, nil
}

func (s *arrayStore) write(ctx context.Context, tr Transport, slots int, values [][]byte, fill []byte) error {
	buf := make([]byte, 0, slots*len(fill))
	for i := range slots {
		if i < len(values) {
			buf = append(buf, values[i]...)
		} else {
			buf = append(buf, fill...)
		}
	}
	if err := tr.Write(ctx, ItemLegacy, uint16(s.id), buf); err != nil {
		return fmt.Errorf("writing %s: %w", s.id, err)
	}
	return nil
}

func (s *arrayStore) writeSlot(ctx context.Context, tr Transport, index int, value []byte) error {
	data, err := s.load(ctx, tr, len(value))
	if err != nil {
		return err
	}
	copy(data[index*len(value):], value)
	if err := tr.Write(ctx, ItemLegacy, uint16(s.id), data); err != nil {
		return fmt.Errorf("writing %s: %w", s.id, err)
	}
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ Layout     = (*ManifestLayout)(nil)
	_ tableStore = (*slotStore)(nil)
	_ tableStore = (*arrayStore)(nil)
)
