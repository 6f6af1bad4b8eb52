package security_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znp-protocol/znp-go/pkg/nvram"
	"github.com/znp-protocol/znp-go/pkg/security"
	"github.com/znp-protocol/znp-go/pkg/tclk"
	"github.com/znp-protocol/znp-go/pkg/version"
	"github.com/znp-protocol/znp-go/pkg/wire"
	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

var generations = []version.Firmware{version.ZStack12, version.ZStack30, version.ZStack330}

// radio is a provisioned in-memory coordinator.
type radio struct {
	dev *nvram.MemoryDevice
	nv  *nvram.NVRAM
	reg *security.Registry
}

type radioOpts struct {
	addrSlots int
	keySlots  int
	linkSlots int
	logger    *slog.Logger
}

func newRadio(t *testing.T, fw version.Firmware, o radioOpts) *radio {
	t.Helper()

	if o.addrSlots == 0 {
		o.addrSlots = 8
	}
	if o.keySlots == 0 {
		o.keySlots = 4
	}
	if o.linkSlots == 0 {
		o.linkSlots = 4
	}

	dev := nvram.NewMemoryDevice()
	nv, err := nvram.Open(dev, fw.String(), nvram.DefaultConfig())
	require.NoError(t, err)
	align := nv.Profile().AlignStructs

	require.NoError(t, dev.Provision(nv.Layout(), version.TableAddrMgr, o.addrSlots, wire.Marshal(&wire.EmptyAddrMgrEntry, align)))
	require.NoError(t, dev.Provision(nv.Layout(), version.TableAPSKeyData, o.keySlots, wire.Marshal(&wire.EmptyAPSKeyDataEntry, align)))
	if nv.HasTable(version.TableTCLK) {
		require.NoError(t, dev.Provision(nv.Layout(), version.TableTCLK, o.keySlots, wire.Marshal(&wire.EmptyTCLKDevEntry, align)))
		dev.Set(nvram.ItemLegacy, uint16(nvram.OsalTCLKSeed), make([]byte, zigbee.KeySize))
	}
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalAPSLinkKeyTable), make([]byte, 2+5*o.linkSlots))

	return &radio{
		dev: dev,
		nv:  nv,
		reg: security.NewRegistry(nv, security.Config{CounterIncrement: security.DefaultCounterIncrement, Logger: o.logger}),
	}
}

func ptr[T any](v T) *T { return &v }

var (
	sharedSeed = zigbee.KeyData{
		0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	}
	unrelatedKey = zigbee.KeyData{
		0x5A, 0x69, 0x67, 0x42, 0x65, 0x65, 0x41, 0x6C,
		0x6C, 0x69, 0x61, 0x6E, 0x63, 0x65, 0x30, 0x39,
	}
)

func keyedDevice(ieee string, nwk zigbee.NWK, key zigbee.KeyData, tx, rx uint32) security.StoredDevice {
	d := security.StoredDevice{IEEE: zigbee.MustParseEUI64(ieee), NWK: nwk}
	return d.WithKey(key, tx, rx)
}

func derivedDevice(ieee string, nwk zigbee.NWK, shift uint8, tx, rx uint32) security.StoredDevice {
	addr := zigbee.MustParseEUI64(ieee)
	return keyedDevice(ieee, nwk, tclk.ComputeKey(addr, sharedSeed, shift), tx, rx)
}

func testDevices() []security.StoredDevice {
	return []security.StoredDevice{
		{IEEE: zigbee.MustParseEUI64("00:12:4b:00:1c:a1:b8:46"), NWK: 0x1A2B},
		derivedDevice("00:0d:6f:00:0b:7a:64:a1", 0x2C3D, 1, 100, 200),
		derivedDevice("ec:1b:bd:ff:fe:54:4f:40", 0x3E4F, 2, 300, 400),
		derivedDevice("84:2e:14:ff:fe:a9:f0:8b", 0x5061, 3, 500, 600),
		keyedDevice("00:15:8d:00:02:3a:1f:77", 0x7283, unrelatedKey, 700, 800),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, fw := range generations {
		t.Run(fw.String(), func(t *testing.T) {
			r := newRadio(t, fw, radioOpts{})
			devices := testDevices()

			require.NoError(t, r.reg.WriteDevices(ctx, devices, security.WithSeed(sharedSeed)))

			got, err := r.reg.ReadDevices(ctx)
			require.NoError(t, err)
			require.Len(t, got, len(devices))

			for i, want := range devices {
				d := got[i]
				assert.Equal(t, want.IEEE, d.IEEE)
				assert.Equal(t, want.NWK, d.NWK)
				if !want.HasKey() {
					assert.False(t, d.HasKey(), "device %s gained a key", d.IEEE)
					continue
				}
				require.True(t, d.HasKey(), "device %s lost its key", d.IEEE)
				assert.Equal(t, *want.APSLinkKey, *d.APSLinkKey)
				assert.Equal(t, *want.TxCounter+security.DefaultCounterIncrement, *d.TxCounter)
				assert.Equal(t, *want.RxCounter, *d.RxCounter)
			}

			if fw == version.ZStack12 {
				for _, d := range got {
					assert.Nil(t, d.HashedLinkKeyShift, "1.2 stores every key raw")
				}
				return
			}
			for i, shift := range []uint8{1, 2, 3} {
				require.NotNil(t, got[i+1].HashedLinkKeyShift)
				assert.Equal(t, shift, *got[i+1].HashedLinkKeyShift)
			}
			assert.Nil(t, got[4].HashedLinkKeyShift)

			seed, ok, err := r.reg.ReadSeed(ctx)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, sharedSeed, seed)
		})
	}
}

func TestWriteDevicesChoosesSeed(t *testing.T) {
	ctx := context.Background()
	r := newRadio(t, version.ZStack330, radioOpts{})

	require.NoError(t, r.reg.WriteDevices(ctx, testDevices()))

	seed, ok, err := r.reg.ReadSeed(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	hashed, err := nvram.CollectRecords[wire.TCLKDevEntry](ctx, r.nv, version.TableTCLK)
	require.NoError(t, err)
	used := 0
	for _, e := range hashed {
		if !e.ExtAddr.IsZero() {
			used++
			assert.Equal(t, wire.KeyAttrDefault, e.KeyAttributes)
			assert.Equal(t, wire.KeyTypeNWK, e.KeyType)
		}
	}
	assert.Equal(t, 3, used)

	devices, err := r.reg.ReadDevices(ctx)
	require.NoError(t, err)
	for _, d := range devices[1:4] {
		require.NotNil(t, d.HashedLinkKeyShift)
		shift, ok := tclk.FindKeyShift(d.IEEE, *d.APSLinkKey, seed)
		require.True(t, ok)
		assert.Equal(t, shift, *d.HashedLinkKeyShift)
	}
}

func TestWriteDevicesCounterIncrement(t *testing.T) {
	ctx := context.Background()
	r := newRadio(t, version.ZStack30, radioOpts{})

	devices := testDevices()[:2]
	require.NoError(t, r.reg.WriteDevices(ctx, devices, security.WithCounterIncrement(7)))

	got, err := r.reg.ReadDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(107), *got[1].TxCounter)
	assert.Equal(t, uint32(200), *got[1].RxCounter)
}

func TestWriteDevicesCounterOverflow(t *testing.T) {
	r := newRadio(t, version.ZStack330, radioOpts{})
	d := keyedDevice("00:15:8d:00:02:3a:1f:77", 1, unrelatedKey, 0xFFFFFFF0, 0)

	err := r.reg.WriteDevices(context.Background(), []security.StoredDevice{d})
	assert.ErrorIs(t, err, security.ErrInvalidDevice)
	assert.Zero(t, r.dev.Writes())
}

func TestWriteDevicesIndirectionCapacity(t *testing.T) {
	ctx := context.Background()

	for _, fw := range generations {
		t.Run(fw.String(), func(t *testing.T) {
			r := newRadio(t, fw, radioOpts{linkSlots: 1})

			devices := []security.StoredDevice{
				keyedDevice("00:15:8d:00:02:3a:1f:77", 1, unrelatedKey, 1, 1),
				keyedDevice("00:15:8d:00:02:3a:1f:78", 2, zigbee.KeyData{0x11, 0x22}, 1, 1),
			}
			// only the first key derives from this seed
			seed := tclk.ComputeSeed(devices[0].IEEE, *devices[0].APSLinkKey, 0)
			opts := []security.WriteOption{security.WithSeed(seed)}
			if fw == version.ZStack12 {
				opts = nil
			}

			devices = append(devices, keyedDevice("00:15:8d:00:02:3a:1f:79", 3, zigbee.KeyData{0x33}, 1, 1))
			err := r.reg.WriteDevices(ctx, devices, opts...)

			var ce *nvram.CapacityError
			require.ErrorAs(t, err, &ce)
			assert.ErrorIs(t, err, nvram.ErrCapacityExceeded)
			assert.Equal(t, security.TableAPSLinkKey, ce.Table)
			assert.Equal(t, 7, ce.Have)
			assert.Zero(t, r.dev.Writes(), "no write may reach storage")
		})
	}
}

func TestWriteDevicesTableCapacity(t *testing.T) {
	r := newRadio(t, version.ZStack330, radioOpts{addrSlots: 2})

	err := r.reg.WriteDevices(context.Background(), testDevices())

	var ce *nvram.CapacityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, version.TableAddrMgr, ce.Table)
	assert.Equal(t, 5, ce.Need)
	assert.Equal(t, 2, ce.Have)
	assert.Zero(t, r.dev.Writes())
}

func TestWriteDevicesRejectsInvalid(t *testing.T) {
	r := newRadio(t, version.ZStack330, radioOpts{})
	devices := testDevices()

	dup := append(devices, devices[1])
	assert.ErrorIs(t, r.reg.WriteDevices(context.Background(), dup), security.ErrInvalidDevice)

	bad := security.StoredDevice{IEEE: zigbee.EUI64{1}, APSLinkKey: &unrelatedKey}
	assert.ErrorIs(t, r.reg.WriteDevices(context.Background(), []security.StoredDevice{bad}), security.ErrInvalidDevice)
	assert.Zero(t, r.dev.Writes())
}

func TestWriteDevicesPadsTables(t *testing.T) {
	ctx := context.Background()
	r := newRadio(t, version.ZStack30, radioOpts{})

	require.NoError(t, r.reg.WriteDevices(ctx, testDevices(), security.WithSeed(sharedSeed)))
	require.NoError(t, r.reg.WriteDevices(ctx, testDevices()[:1]))

	addrs, err := nvram.CollectRecords[wire.AddrMgrEntry](ctx, r.nv, version.TableAddrMgr)
	require.NoError(t, err)
	require.Len(t, addrs, 8)
	assert.Equal(t, wire.AddrMgrAssoc, addrs[0].Type)
	for _, e := range addrs[1:] {
		assert.Equal(t, wire.EmptyAddrMgrEntry, e)
	}

	raw, err := nvram.CollectRecords[wire.APSKeyDataEntry](ctx, r.nv, version.TableAPSKeyData)
	require.NoError(t, err)
	for _, e := range raw {
		assert.Equal(t, wire.EmptyAPSKeyDataEntry, e)
	}

	links, _ := r.dev.Get(nvram.ItemLegacy, uint16(nvram.OsalAPSLinkKeyTable))
	assert.Equal(t, make([]byte, 22), links, "indirection table keeps its length")
}

func TestReadDevicesRoleFlags(t *testing.T) {
	ctx := context.Background()
	ieee := zigbee.MustParseEUI64("00:12:4b:00:1c:a1:b8:46")

	tests := []struct {
		name    string
		typ     wire.AddrMgrUserType
		nwk     zigbee.NWK
		want    int
		corrupt bool
	}{
		{"assoc", wire.AddrMgrAssoc, 1, 1, false},
		{"assoc security", wire.AddrMgrAssoc | wire.AddrMgrSecurity, 1, 1, false},
		{"binding", wire.AddrMgrBinding, 1, 0, true},
		{"assoc binding", wire.AddrMgrAssoc | wire.AddrMgrBinding, 1, 0, true},
		{"unused slot any type", wire.AddrMgrBinding, zigbee.NWKUnused, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRadio(t, version.ZStack330, radioOpts{})
			require.NoError(t, nvram.WriteRecordAt(ctx, r.nv, version.TableAddrMgr, 0, wire.AddrMgrEntry{Type: tt.typ, NWK: tt.nwk, ExtAddr: ieee}))

			devices, err := r.reg.ReadDevices(ctx)
			if tt.corrupt {
				assert.ErrorIs(t, err, nvram.ErrDataCorruption)
				return
			}
			require.NoError(t, err)
			assert.Len(t, devices, tt.want)
		})
	}
}

func TestReadDevicesHashedKeyForUnknownDevice(t *testing.T) {
	ctx := context.Background()
	r := newRadio(t, version.ZStack30, radioOpts{})

	entry := wire.TCLKDevEntry{ExtAddr: zigbee.EUI64{9, 9}, KeyType: wire.KeyTypeNWK}
	require.NoError(t, nvram.WriteRecordAt(ctx, r.nv, version.TableTCLK, 0, entry))

	_, err := r.reg.ReadDevices(ctx)
	assert.ErrorIs(t, err, nvram.ErrDataCorruption)
}

func TestReadDevicesIndirectionOutOfRange(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		link wire.APSLinkKeyTableEntry
	}{
		{"key slot", wire.APSLinkKeyTableEntry{AddressManagerIndex: 0, LinkKeyNvID: 0x020B, AuthenticationState: wire.AuthAuthenticatedCBCK}},
		{"key slot below base", wire.APSLinkKeyTableEntry{AddressManagerIndex: 0, LinkKeyNvID: 0x0001, AuthenticationState: wire.AuthAuthenticatedCBCK}},
		{"address slot", wire.APSLinkKeyTableEntry{AddressManagerIndex: 40, LinkKeyNvID: 0x0201, AuthenticationState: wire.AuthAuthenticatedCBCK}},
		{"address slot without security", wire.APSLinkKeyTableEntry{AddressManagerIndex: 0, LinkKeyNvID: 0x0201, AuthenticationState: wire.AuthAuthenticatedCBCK}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRadio(t, version.ZStack30, radioOpts{})
			require.NoError(t, r.reg.WriteDevices(ctx, testDevices()[:1]))

			links := wire.APSLinkKeyTable{tt.link}
			require.NoError(t, r.nv.OsalWrite(ctx, nvram.OsalAPSLinkKeyTable, wire.Marshal(&links, false)))

			_, err := r.reg.ReadDevices(ctx)
			assert.ErrorIs(t, err, nvram.ErrDataCorruption)
		})
	}
}

func TestReadDevicesSkipsUnauthenticatedLinks(t *testing.T) {
	ctx := context.Background()
	r := newRadio(t, version.ZStack30, radioOpts{})
	require.NoError(t, r.reg.WriteDevices(ctx, testDevices()[:1]))

	links := wire.APSLinkKeyTable{{AddressManagerIndex: 0, LinkKeyNvID: 0x0201, AuthenticationState: wire.AuthNotAuthenticated}}
	require.NoError(t, r.nv.OsalWrite(ctx, nvram.OsalAPSLinkKeyTable, wire.Marshal(&links, false)))

	devices, err := r.reg.ReadDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.False(t, devices[0].HasKey())
}

func TestReadDevicesProtectedItems(t *testing.T) {
	ctx := context.Background()

	t.Run("seed", func(t *testing.T) {
		var buf bytes.Buffer
		r := newRadio(t, version.ZStack30, radioOpts{logger: slog.New(slog.NewJSONHandler(&buf, nil))})
		require.NoError(t, r.reg.WriteDevices(ctx, testDevices(), security.WithSeed(sharedSeed)))
		r.dev.Protect(nvram.ItemLegacy, uint16(nvram.OsalTCLKSeed))

		devices, err := r.reg.ReadDevices(ctx)
		require.NoError(t, err)
		for _, d := range devices[:4] {
			assert.False(t, d.HasKey(), "hashed keys need the seed")
		}
		assert.True(t, devices[4].HasKey(), "raw keys do not need the seed")
		assert.Contains(t, buf.String(), "TCLK seed is not readable")
	})

	t.Run("raw key table", func(t *testing.T) {
		r := newRadio(t, version.ZStack12, radioOpts{})
		require.NoError(t, r.reg.WriteDevices(ctx, testDevices()))
		r.dev.Protect(nvram.ItemLegacy, uint16(nvram.OsalLegacyAPSLinkKeyDataStart))

		devices, err := r.reg.ReadDevices(ctx)
		require.NoError(t, err)
		require.Len(t, devices, 5)
		for _, d := range devices {
			assert.False(t, d.HasKey())
		}
	})

	t.Run("raw key table protected before write", func(t *testing.T) {
		r := newRadio(t, version.ZStack12, radioOpts{})
		for i := range 4 {
			r.dev.Protect(nvram.ItemLegacy, uint16(nvram.OsalLegacyAPSLinkKeyDataStart)+uint16(i))
		}

		devices := testDevices()
		require.NoError(t, r.reg.WriteDevices(ctx, devices))

		raw, ok := r.dev.Get(nvram.ItemLegacy, uint16(nvram.OsalLegacyAPSLinkKeyDataStart))
		require.True(t, ok)
		var entry wire.APSKeyDataEntry
		require.NoError(t, wire.Unmarshal(raw, &entry, false))
		assert.Equal(t, *devices[1].APSLinkKey, entry.Key)
		assert.Equal(t, uint32(100)+security.DefaultCounterIncrement, entry.TxFrameCounter)

		got, err := r.reg.ReadDevices(ctx)
		require.NoError(t, err)
		require.Len(t, got, 5)
		for _, d := range got {
			assert.False(t, d.HasKey(), "raw keys stay undisclosed")
		}
	})
}

func TestWriteDevicesSeedIgnoredWithoutSeedTable(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	r := newRadio(t, version.ZStack12, radioOpts{logger: logger})

	require.NoError(t, r.reg.WriteDevices(ctx, testDevices(), security.WithSeed(sharedSeed)))
	assert.Contains(t, buf.String(), "ignoring requested seed")

	_, ok, err := r.reg.ReadSeed(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	devices, err := r.reg.ReadDevices(ctx)
	require.NoError(t, err)
	for _, d := range devices[1:] {
		require.True(t, d.HasKey(), "keys are stored raw")
		assert.Nil(t, d.HashedLinkKeyShift)
	}
}

func TestReadDevicesKeyTypes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		keyType wire.KeyType
		warn    string
	}{
		{wire.KeyTypeNone, ""},
		{wire.KeyTypeNWK, ""},
		{wire.KeyTypeTCLink, "TC_LINK"},
		{wire.KeyType(0x09), "unknown_0x09"},
	}

	for _, tt := range tests {
		t.Run(tt.keyType.String(), func(t *testing.T) {
			var buf bytes.Buffer
			r := newRadio(t, version.ZStack330, radioOpts{logger: slog.New(slog.NewJSONHandler(&buf, nil))})
			require.NoError(t, r.reg.WriteDevices(ctx, testDevices()[:2], security.WithSeed(sharedSeed)))

			hashed, err := nvram.CollectRecords[wire.TCLKDevEntry](ctx, r.nv, version.TableTCLK)
			require.NoError(t, err)
			entry := hashed[0]
			entry.KeyType = tt.keyType
			require.NoError(t, nvram.WriteRecordAt(ctx, r.nv, version.TableTCLK, 0, entry))

			devices, err := r.reg.ReadDevices(ctx)
			require.NoError(t, err)
			assert.True(t, devices[1].HasKey(), "the key is derived regardless of its type tag")

			warned := strings.Contains(buf.String(), `"level":"WARN"`)
			if tt.warn == "" {
				assert.False(t, warned, "unexpected warning: %s", buf.String())
				return
			}
			assert.True(t, warned)
			assert.Contains(t, buf.String(), tt.warn)
		})
	}
}

func TestStoredDeviceValidate(t *testing.T) {
	key := zigbee.KeyData{1}

	tests := []struct {
		name  string
		dev   security.StoredDevice
		valid bool
	}{
		{"no key", security.StoredDevice{}, true},
		{"key with counters", security.StoredDevice{APSLinkKey: &key, TxCounter: ptr[uint32](1), RxCounter: ptr[uint32](2)}, true},
		{"key with shift", security.StoredDevice{APSLinkKey: &key, TxCounter: ptr[uint32](1), RxCounter: ptr[uint32](2), HashedLinkKeyShift: ptr[uint8](15)}, true},
		{"key without rx", security.StoredDevice{APSLinkKey: &key, TxCounter: ptr[uint32](1)}, false},
		{"shift without key", security.StoredDevice{HashedLinkKeyShift: ptr[uint8](1)}, false},
		{"shift out of range", security.StoredDevice{APSLinkKey: &key, TxCounter: ptr[uint32](1), RxCounter: ptr[uint32](2), HashedLinkKeyShift: ptr[uint8](16)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dev.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, security.ErrInvalidDevice)
			}
		})
	}
}
