package nvram

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/google/uuid"

	"github.com/znp-protocol/znp-go/pkg/log"
	"github.com/znp-protocol/znp-go/pkg/version"
)

// Config holds NVRAM session configuration.
type Config struct {
	// Logger receives one event per exchange. Nil disables capture.
	Logger log.Logger

	// CaptureData attaches item bytes to events. Items include link keys,
	// so this is off by default.
	CaptureData bool
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Logger:      log.NoopLogger{},
		CaptureData: false,
	}
}

// NVRAM is an NVRAM session bound to one radio connection.
type NVRAM struct {
	mu sync.Mutex

	tr        *tracedTransport
	layout    Layout
	sessionID string
}

// New creates a session using an explicit layout.
func New(tr Transport, layout Layout, cfg Config) *NVRAM {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	id := uuid.NewString()
	return &NVRAM{
		tr: &tracedTransport{
			inner:    tr,
			logger:   logger,
			session:  id,
			firmware: layout.Firmware().String(),
			capture:  cfg.CaptureData,
		},
		layout:    layout,
		sessionID: id,
	}
}

// Open creates a session for the firmware version reported by the radio.
func Open(tr Transport, firmware string, cfg Config) (*NVRAM, error) {
	fw, err := version.Resolve(firmware)
	if err != nil {
		return nil, err
	}
	layout, err := LayoutFor(fw)
	if err != nil {
		return nil, err
	}
	return New(tr, layout, cfg), nil
}

// SessionID returns the id attached to this session's events.
func (n *NVRAM) SessionID() string {
	return n.sessionID
}

// Layout returns the session's storage layout.
func (n *NVRAM) Layout() Layout {
	return n.layout
}

// Profile returns the storage properties of the session's firmware.
func (n *NVRAM) Profile() version.Profile {
	return n.layout.Profile()
}

// HasTable reports whether the firmware has the named table.
func (n *NVRAM) HasTable(table string) bool {
	_, ok := n.layout.Table(table)
	return ok
}

// Read reads one item.
func (n *NVRAM) Read(ctx context.Context, item ItemID, subID uint16) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.layout.ReadItem(ctx, n.tr, item, subID)
}

// Write creates or replaces one item.
func (n *NVRAM) Write(ctx context.Context, item ItemID, subID uint16, value []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.layout.WriteItem(ctx, n.tr, item, subID, value)
}

// OsalRead reads a legacy OSAL item.
func (n *NVRAM) OsalRead(ctx context.Context, id OsalID) ([]byte, error) {
	return n.Read(ctx, ItemLegacy, uint16(id))
}

// OsalWrite creates or replaces a legacy OSAL item.
func (n *NVRAM) OsalWrite(ctx context.Context, id OsalID, value []byte) error {
	return n.Write(ctx, ItemLegacy, uint16(id), value)
}

// ReadTable yields the raw records of a table. The session lock is held
// until the loop ends; do not call the session from inside it.
func (n *NVRAM) ReadTable(ctx context.Context, table string, recordSize int) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		n.mu.Lock()
		defer n.mu.Unlock()

		for data, err := range n.layout.ReadTable(ctx, n.tr, table, recordSize) {
			if !yield(data, err) || err != nil {
				return
			}
		}
	}
}

// WriteTable replaces the contents of a table, padding existing slots past
// len(values) with fill. It fails with ErrCapacityExceeded, writing nothing,
// when the table has fewer slots than values.
func (n *NVRAM) WriteTable(ctx context.Context, table string, values [][]byte, fill []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.layout.WriteTable(ctx, n.tr, table, values, fill)
}

// WriteTableSlot replaces the record at one existing ordinal of a table.
func (n *NVRAM) WriteTableSlot(ctx context.Context, table string, index int, value []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.layout.WriteSlot(ctx, n.tr, table, index, value)
}

// TableCapacity returns the number of existing slots of a table.
func (n *NVRAM) TableCapacity(ctx context.Context, table string, recordSize int) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	slots, err := n.layout.Capacity(ctx, n.tr, table, recordSize)
	if err != nil {
		return 0, fmt.Errorf("reading %s capacity: %w", table, err)
	}
	return slots, nil
}
