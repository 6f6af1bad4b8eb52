package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/znp-protocol/znp-go/pkg/nvram"
	"github.com/znp-protocol/znp-go/pkg/tclk"
	"github.com/znp-protocol/znp-go/pkg/version"
	"github.com/znp-protocol/znp-go/pkg/wire"
	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// TableAPSLinkKey names the indirection table in capacity errors.
const TableAPSLinkKey = "aps_link_key_table"

// Registry reads and writes the device registry of one NVRAM session.
// Operations are serialized.
type Registry struct {
	mu sync.Mutex

	nv        *nvram.NVRAM
	increment uint32
	logger    *slog.Logger
}

// NewRegistry creates a registry on an open NVRAM session.
func NewRegistry(nv *nvram.NVRAM, cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		nv:        nv,
		increment: cfg.CounterIncrement,
		logger:    logger.With("session_id", nv.SessionID(), "firmware", nv.Layout().Firmware().String()),
	}
}

// usesSeed reports whether the firmware stores hashed keys.
func (r *Registry) usesSeed() bool {
	return r.nv.Profile().TCLKSeed && r.nv.HasTable(version.TableTCLK)
}

// ReadSeed returns the TCLK seed. ok is false when the firmware has no seed
// or refuses to disclose it.
func (r *Registry) ReadSeed(ctx context.Context) (seed zigbee.KeyData, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readSeed(ctx)
}

func (r *Registry) readSeed(ctx context.Context) (zigbee.KeyData, bool, error) {
	var seed zigbee.KeyData
	if !r.usesSeed() {
		return seed, false, nil
	}

	data, err := r.nv.OsalRead(ctx, nvram.OsalTCLKSeed)
	if errors.Is(err, nvram.ErrSecurity) {
		r.logger.Info("TCLK seed is not readable, hashed keys unavailable")
		return seed, false, nil
	}
	if err != nil {
		return seed, false, fmt.Errorf("reading TCLK seed: %w", err)
	}
	if len(data) != len(seed) {
		return seed, false, fmt.Errorf("%w: TCLK seed is %d bytes", nvram.ErrDataCorruption, len(data))
	}
	copy(seed[:], data)
	return seed, true, nil
}

// registry is the device list under construction, in address table order.
type registry struct {
	devices []StoredDevice
	index   map[zigbee.EUI64]int
}

func (g *registry) lookup(ieee zigbee.EUI64) (int, error) {
	i, ok := g.index[ieee]
	if !ok {
		return 0, fmt.Errorf("%w: key for %s, which has no address table entry", nvram.ErrDataCorruption, ieee)
	}
	return i, nil
}

// ReadDevices returns every device of the address table with its link key
// and frame counters, in address table order.
func (r *Registry) ReadDevices(ctx context.Context) ([]StoredDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seed, hasSeed, err := r.readSeed(ctx)
	if err != nil {
		return nil, err
	}

	addrs, err := nvram.CollectRecords[wire.AddrMgrEntry](ctx, r.nv, version.TableAddrMgr)
	if err != nil {
		return nil, fmt.Errorf("reading address table: %w", err)
	}

	g := &registry{index: make(map[zigbee.EUI64]int)}
	for i, entry := range addrs {
		if entry.NWK == zigbee.NWKUnused {
			continue
		}
		switch entry.Type {
		case wire.AddrMgrAssoc, wire.AddrMgrAssoc | wire.AddrMgrSecurity:
		default:
			return nil, fmt.Errorf("%w: address table slot %d has type %s", nvram.ErrDataCorruption, i, entry.Type)
		}
		g.index[entry.ExtAddr] = len(g.devices)
		g.devices = append(g.devices, StoredDevice{IEEE: entry.ExtAddr, NWK: entry.NWK})
	}

	if hasSeed {
		if err := r.readHashedKeys(ctx, g, seed); err != nil {
			return nil, err
		}
	}
	if err := r.readRawKeys(ctx, g, addrs); err != nil {
		return nil, err
	}

	r.logger.Debug("read devices", "devices", len(g.devices), "seed", hasSeed)
	return g.devices, nil
}

func (r *Registry) readHashedKeys(ctx context.Context, g *registry, seed zigbee.KeyData) error {
	for entry, err := range nvram.ReadRecords[wire.TCLKDevEntry](ctx, r.nv, version.TableTCLK) {
		if err != nil {
			return fmt.Errorf("reading hashed key table: %w", err)
		}
		if entry.ExtAddr.IsZero() {
			continue
		}

		switch entry.KeyType {
		case wire.KeyTypeNone, wire.KeyTypeNWK:
		default:
			r.logger.Warn("unexpected key type in hashed key entry",
				"ieee", entry.ExtAddr.String(),
				"key_type", entry.KeyType.String(),
				"known", entry.KeyType.Known())
		}

		i, err := g.lookup(entry.ExtAddr)
		if err != nil {
			return err
		}

		key := tclk.ComputeKey(entry.ExtAddr, seed, entry.SeedShift)
		shift, _ := tclk.FindKeyShift(entry.ExtAddr, key, seed)
		g.devices[i] = g.devices[i].WithKey(key, entry.TxFrameCounter, entry.RxFrameCounter).withShift(shift)
	}
	return nil
}

func (r *Registry) readRawKeys(ctx context.Context, g *registry, addrs []wire.AddrMgrEntry) error {
	raw, err := nvram.CollectRecords[wire.APSKeyDataEntry](ctx, r.nv, version.TableAPSKeyData)
	if errors.Is(err, nvram.ErrSecurity) {
		r.logger.Info("APS key data table is not readable, unhashed keys unavailable")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading APS key data table: %w", err)
	}

	data, err := r.nv.OsalRead(ctx, nvram.OsalAPSLinkKeyTable)
	if err != nil {
		return fmt.Errorf("reading APS link key table: %w", err)
	}
	var links wire.APSLinkKeyTable
	if _, err := wire.UnmarshalPrefix(data, &links, false); err != nil {
		return fmt.Errorf("%w: APS link key table: %v", nvram.ErrDataCorruption, err)
	}

	base := int(r.nv.Profile().RawKeyBase)
	for n, link := range links {
		if !link.AuthenticationState.Known() {
			r.logger.Warn("unknown authentication state in link key entry",
				"entry", n, "state", link.AuthenticationState.String())
		}
		if link.AuthenticationState&wire.AuthAuthenticatedCBCK == 0 {
			continue
		}

		slot := int(link.LinkKeyNvID) - base
		if slot < 0 || slot >= len(raw) {
			return fmt.Errorf("%w: link key entry %d references key slot 0x%04X", nvram.ErrDataCorruption, n, link.LinkKeyNvID)
		}
		ai := int(link.AddressManagerIndex)
		if ai >= len(addrs) {
			return fmt.Errorf("%w: link key entry %d references address slot %d of %d", nvram.ErrDataCorruption, n, ai, len(addrs))
		}
		addr := addrs[ai]
		if !addr.Type.Has(wire.AddrMgrAssoc) || !addr.Type.Has(wire.AddrMgrSecurity) {
			return fmt.Errorf("%w: link key entry %d references address slot %d of type %s", nvram.ErrDataCorruption, n, ai, addr.Type)
		}

		i, err := g.lookup(addr.ExtAddr)
		if err != nil {
			return err
		}
		key := raw[slot]
		g.devices[i] = g.devices[i].WithKey(key.Key, key.TxFrameCounter, key.RxFrameCounter)
	}
	return nil
}

// plan is the in-memory contents of every table a write replaces.
type plan struct {
	addrs  []wire.AddrMgrEntry
	hashed []wire.TCLKDevEntry
	raw    []wire.APSKeyDataEntry
	links  wire.APSLinkKeyTable

	seed    zigbee.KeyData
	hasSeed bool
}

// WriteDevices replaces the device registry with devices. Keys derivable from
// the seed are stored hashed, all others raw. Unless WithSeed is given the
// seed deriving the most keys is chosen. Every stored tx counter is raised by
// the counter increment.
//
// Nothing is written when a table lacks room; the error then matches
// nvram.ErrCapacityExceeded.
func (r *Registry) WriteDevices(ctx context.Context, devices []StoredDevice, opts ...WriteOption) error {
	o := writeOptions{increment: r.increment}
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.build(devices, o)
	if err != nil {
		return err
	}
	if err := r.checkCapacity(ctx, p); err != nil {
		return err
	}
	return r.commit(ctx, p)
}

func (r *Registry) build(devices []StoredDevice, o writeOptions) (*plan, error) {
	seen := make(map[zigbee.EUI64]bool, len(devices))
	var pairs []tclk.Pair
	for _, d := range devices {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.IEEE] {
			return nil, fmt.Errorf("%w: %s listed twice", ErrInvalidDevice, d.IEEE)
		}
		seen[d.IEEE] = true
		if d.HasKey() {
			pairs = append(pairs, tclk.Pair{IEEE: d.IEEE, Key: *d.APSLinkKey})
		}
	}

	p := &plan{}
	if r.usesSeed() {
		switch {
		case o.seed != nil:
			p.seed, p.hasSeed = *o.seed, true
		default:
			var count int
			p.seed, count, p.hasSeed = tclk.BestSeed(pairs)
			r.logger.Debug("chose TCLK seed", "derivable", count, "keys", len(pairs))
		}
	} else if o.seed != nil {
		r.logger.Debug("firmware has no TCLK seed, ignoring requested seed")
	}

	base := r.nv.Profile().RawKeyBase
	for i, d := range devices {
		entry := wire.AddrMgrEntry{Type: wire.AddrMgrAssoc, NWK: d.NWK, ExtAddr: d.IEEE}
		if d.HasKey() {
			entry.Type |= wire.AddrMgrSecurity
		}
		p.addrs = append(p.addrs, entry)

		if !d.HasKey() {
			continue
		}
		tx, err := addCounter(*d.TxCounter, o.increment)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDevice, d.IEEE, err)
		}

		if p.hasSeed {
			if shift, ok := tclk.FindKeyShift(d.IEEE, *d.APSLinkKey, p.seed); ok {
				p.hashed = append(p.hashed, wire.TCLKDevEntry{
					TxFrameCounter: tx,
					RxFrameCounter: *d.RxCounter,
					ExtAddr:        d.IEEE,
					KeyAttributes:  wire.KeyAttrDefault,
					KeyType:        wire.KeyTypeNWK,
					SeedShift:      shift,
				})
				continue
			}
		}

		p.raw = append(p.raw, wire.APSKeyDataEntry{
			Key:            *d.APSLinkKey,
			TxFrameCounter: tx,
			RxFrameCounter: *d.RxCounter,
		})
		p.links = append(p.links, wire.APSLinkKeyTableEntry{
			AddressManagerIndex: uint16(i),
			LinkKeyNvID:         base + uint16(len(p.raw)-1),
			AuthenticationState: wire.AuthAuthenticatedCBCK,
		})
	}
	return p, nil
}

func addCounter(counter, increment uint32) (uint32, error) {
	sum := uint64(counter) + uint64(increment)
	if sum > math.MaxUint32 {
		return 0, fmt.Errorf("tx counter %d overflows with increment %d", counter, increment)
	}
	return uint32(sum), nil
}

func (r *Registry) checkCapacity(ctx context.Context, p *plan) error {
	check := func(table string, need int, capacity func() (int, error)) error {
		have, err := capacity()
		if err != nil {
			return err
		}
		if need > have {
			return &nvram.CapacityError{Table: table, Need: need, Have: have}
		}
		return nil
	}

	if err := check(version.TableAddrMgr, len(p.addrs), func() (int, error) {
		return nvram.TableCapacityOf[wire.AddrMgrEntry](ctx, r.nv, version.TableAddrMgr)
	}); err != nil {
		return err
	}
	if r.usesSeed() {
		if err := check(version.TableTCLK, len(p.hashed), func() (int, error) {
			return nvram.TableCapacityOf[wire.TCLKDevEntry](ctx, r.nv, version.TableTCLK)
		}); err != nil {
			return err
		}
	}
	if err := check(version.TableAPSKeyData, len(p.raw), func() (int, error) {
		return nvram.TableCapacityOf[wire.APSKeyDataEntry](ctx, r.nv, version.TableAPSKeyData)
	}); err != nil {
		return err
	}

	return check(TableAPSLinkKey, wire.Size(&p.links, false), func() (int, error) {
		old, err := r.nv.OsalRead(ctx, nvram.OsalAPSLinkKeyTable)
		if err != nil {
			return 0, fmt.Errorf("reading APS link key table: %w", err)
		}
		return len(old), nil
	})
}

func (r *Registry) commit(ctx context.Context, p *plan) error {
	if err := nvram.WriteRecords(ctx, r.nv, version.TableAddrMgr, p.addrs, wire.EmptyAddrMgrEntry); err != nil {
		return fmt.Errorf("writing address table: %w", err)
	}

	old, err := r.nv.OsalRead(ctx, nvram.OsalAPSLinkKeyTable)
	if err != nil {
		return fmt.Errorf("reading APS link key table: %w", err)
	}
	links := wire.Marshal(&p.links, false)
	if pad := len(old) - len(links); pad > 0 {
		links = append(links, make([]byte, pad)...)
	}
	if err := r.nv.OsalWrite(ctx, nvram.OsalAPSLinkKeyTable, links); err != nil {
		return fmt.Errorf("writing APS link key table: %w", err)
	}

	if r.usesSeed() {
		if p.hasSeed {
			if err := r.nv.OsalWrite(ctx, nvram.OsalTCLKSeed, p.seed[:]); err != nil {
				return fmt.Errorf("writing TCLK seed: %w", err)
			}
		}
		if err := nvram.WriteRecords(ctx, r.nv, version.TableTCLK, p.hashed, wire.EmptyTCLKDevEntry); err != nil {
			return fmt.Errorf("writing hashed key table: %w", err)
		}
	}

	if err := nvram.WriteRecords(ctx, r.nv, version.TableAPSKeyData, p.raw, wire.EmptyAPSKeyDataEntry); err != nil {
		return fmt.Errorf("writing APS key data table: %w", err)
	}

	r.logger.Info("wrote devices",
		"devices", len(p.addrs),
		"hashed", len(p.hashed),
		"raw", len(p.raw))
	return nil
}
