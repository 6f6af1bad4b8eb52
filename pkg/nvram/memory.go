package nvram

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/znp-protocol/znp-go/pkg/version"
)

// ItemKey addresses one stored item.
type ItemKey struct {
	Item  ItemID
	SubID uint16
}

func (k ItemKey) String() string {
	if k.Item == ItemLegacy {
		return OsalID(k.SubID).String()
	}
	return fmt.Sprintf("%s:0x%04X", k.Item, k.SubID)
}

// MemoryDevice is an in-memory Transport.
// It is used by tests and to inspect NVRAM backups offline.
type MemoryDevice struct {
	mu sync.RWMutex

	items map[ItemKey][]byte

	// protected items can be written but not read back
	protected map[ItemKey]bool

	writes int
}

// NewMemoryDevice creates an empty device.
func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{
		items:     make(map[ItemKey][]byte),
		protected: make(map[ItemKey]bool),
	}
}

// Read returns a copy of an item.
func (d *MemoryDevice) Read(ctx context.Context, item ItemID, subID uint16) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	key := ItemKey{item, subID}
	value, ok := d.items[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, key)
	}
	if d.protected[key] {
		return nil, fmt.Errorf("%w: %s", ErrSecurity, key)
	}
	return slices.Clone(value), nil
}

// Write creates or replaces an item.
func (d *MemoryDevice) Write(ctx context.Context, item ItemID, subID uint16, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.items[ItemKey{item, subID}] = slices.Clone(value)
	d.writes++
	return nil
}

// Set stores an item without counting it as a write.
func (d *MemoryDevice) Set(item ItemID, subID uint16, value []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[ItemKey{item, subID}] = slices.Clone(value)
}

// Get returns an item, ignoring protection.
func (d *MemoryDevice) Get(item ItemID, subID uint16) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, ok := d.items[ItemKey{item, subID}]
	return slices.Clone(value), ok
}

// Delete removes an item.
func (d *MemoryDevice) Delete(item ItemID, subID uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.items, ItemKey{item, subID})
}

// Protect makes an item undisclosable, like security items on CC2531 builds.
func (d *MemoryDevice) Protect(item ItemID, subID uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protected[ItemKey{item, subID}] = true
}

// Writes returns the number of Write calls that succeeded.
func (d *MemoryDevice) Writes() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.writes
}

// Keys returns every stored item key, sorted by item and sub-id.
func (d *MemoryDevice) Keys() []ItemKey {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return slices.SortedFunc(maps.Keys(d.items), func(a, b ItemKey) int {
		if a.Item != b.Item {
			return int(a.Item) - int(b.Item)
		}
		return int(a.SubID) - int(b.SubID)
	})
}

// Provision creates a table with the given number of slots, each holding
// fill, the way firmware initializes its tables on first boot.
func (d *MemoryDevice) Provision(layout Layout, table string, slots int, fill []byte) error {
	ts, ok := layout.Table(table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	switch ts.Kind {
	case version.KindOsalRange:
		if slots > int(ts.End-ts.Start)+1 {
			return fmt.Errorf("%s has room for %d slots", table, int(ts.End-ts.Start)+1)
		}
		for i := range slots {
			d.Set(ItemLegacy, ts.Start+uint16(i), fill)
		}
	case version.KindExNv:
		for i := range slots {
			d.Set(ItemID(ts.Item), uint16(i), fill)
		}
	case version.KindOsalArray:
		d.Set(ItemLegacy, ts.Item, slices.Repeat(fill, slots))
	default:
		return fmt.Errorf("%s: unknown table kind %q", table, ts.Kind)
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Transport = (*MemoryDevice)(nil)
