package backup_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znp-protocol/znp-go/pkg/backup"
	"github.com/znp-protocol/znp-go/pkg/nvram"
	"github.com/znp-protocol/znp-go/pkg/version"
)

func open(t *testing.T, dev *nvram.MemoryDevice, fw version.Firmware) *nvram.NVRAM {
	t.Helper()
	nv, err := nvram.Open(dev, fw.String(), nvram.DefaultConfig())
	require.NoError(t, err)
	return nv
}

func TestDumpKeys(t *testing.T) {
	ctx := context.Background()
	dev := nvram.NewMemoryDevice()
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalTCLKSeed), []byte{0xAB, 0xCD})
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalLegacyTCLKTableStart), []byte{0x01})
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalLegacyTCLKTableStart)+3, []byte{0x02})
	dev.Set(nvram.ItemLegacy, 0x0E00, []byte{0x99})
	dev.Set(nvram.ItemTCLKTable, 0, []byte{0x10})
	dev.Set(nvram.ItemTCLKTable, 1, []byte{0x11})
	dev.Set(nvram.ItemTCLKTable, 3, []byte{0x13})

	doc, err := backup.Dump(ctx, open(t, dev, version.ZStack330), nil)
	require.NoError(t, err)

	assert.Equal(t, backup.Document{
		"LEGACY": {
			"TCLK_SEED":                 "abcd",
			"LEGACY_TCLK_TABLE_START+0": "01",
			"LEGACY_TCLK_TABLE_START+3": "02",
		},
		"TCLK_TABLE": {
			"0x0000": "10",
			"0x0001": "11",
		},
	}, doc, "unnamed ids are not read and extended tables end at the first gap")
	assert.Zero(t, dev.Writes(), "dump must not modify NVRAM")
}

func TestDumpLegacyFirmwareSkipsExtendedItems(t *testing.T) {
	dev := nvram.NewMemoryDevice()
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalNwkKey), []byte{0x01})
	dev.Set(nvram.ItemTCLKTable, 0, []byte{0x10})

	doc, err := backup.Dump(context.Background(), open(t, dev, version.ZStack12), nil)
	require.NoError(t, err)
	assert.Equal(t, backup.Document{"LEGACY": {"NWKKEY": "01"}}, doc)
}

func TestDumpSkipsProtectedItems(t *testing.T) {
	dev := nvram.NewMemoryDevice()
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalTCLKSeed), bytes.Repeat([]byte{0xFF}, 32))
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalLegacyTCLKTableStart), []byte{0xFF})
	dev.Set(nvram.ItemLegacy, uint16(nvram.OsalHasConfiguredZStack1), []byte{0x55})
	dev.Protect(nvram.ItemLegacy, uint16(nvram.OsalTCLKSeed))
	dev.Protect(nvram.ItemLegacy, uint16(nvram.OsalLegacyTCLKTableStart))

	var buf bytes.Buffer
	doc, err := backup.Dump(context.Background(), open(t, dev, version.ZStack12), slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)

	assert.Equal(t, backup.Document{"LEGACY": {"HAS_CONFIGURED_ZSTACK1": "55"}}, doc)
	assert.Contains(t, buf.String(), "skipping undisclosable item")
}

func TestRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	src := nvram.NewMemoryDevice()
	src.Set(nvram.ItemLegacy, uint16(nvram.OsalHasConfiguredZStack3), bytes.Repeat([]byte{0xFF}, 300))
	src.Set(nvram.ItemLegacy, uint16(nvram.OsalLegacyAPSLinkKeyDataStart)+1, []byte{0x01, 0x02})
	src.Set(nvram.ItemAPSKeyDataTable, 0, []byte{0xAA})
	src.Set(nvram.ItemNwkSecMaterialTable, 0, []byte{0xBB})

	doc, err := backup.Dump(ctx, open(t, src, version.ZStack330), nil)
	require.NoError(t, err)

	dst := nvram.NewMemoryDevice()
	dst.Set(nvram.ItemLegacy, uint16(nvram.OsalHasConfiguredZStack3), []byte{0xBB})
	require.NoError(t, backup.Restore(ctx, open(t, dst, version.ZStack330), doc))
	assert.Equal(t, 4, dst.Writes())

	for _, key := range src.Keys() {
		want, _ := src.Get(key.Item, key.SubID)
		got, ok := dst.Get(key.Item, key.SubID)
		require.True(t, ok, "%s not restored", key)
		assert.Equal(t, want, got, "%s", key)
	}
}

func TestRestoreInvalidDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  backup.Document
	}{
		{"unknown group", backup.Document{"BOGUS": {"0x0000": "00"}}},
		{"unknown legacy key", backup.Document{"LEGACY": {"NOT_AN_ITEM": "00"}}},
		{"non-hex sub-id", backup.Document{"TCLK_TABLE": {"zero": "00"}}},
		{"bad value", backup.Document{"LEGACY": {"TCLK_SEED": "xyz"}}},
		{"table offset out of range", backup.Document{"LEGACY": {"LEGACY_TCLK_IC_TABLE_START+200": "00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := nvram.NewMemoryDevice()
			err := backup.Restore(context.Background(), open(t, dev, version.ZStack330), tt.doc)
			assert.ErrorIs(t, err, backup.ErrInvalidDocument)
			assert.Zero(t, dev.Writes())
		})
	}
}

func TestRestoreExtendedItemsOnLegacyFirmware(t *testing.T) {
	doc := backup.Document{"TCLK_TABLE": {"0x0000": "00"}}
	err := backup.Restore(context.Background(), open(t, nvram.NewMemoryDevice(), version.ZStack30), doc)
	assert.ErrorIs(t, err, nvram.ErrUnsupportedFirmware)
}

func TestSubIDKey(t *testing.T) {
	tests := []struct {
		item  nvram.ItemID
		subID uint16
		want  string
	}{
		{nvram.ItemLegacy, uint16(nvram.OsalNIB), "NIB"},
		{nvram.ItemLegacy, 0x0076, "LEGACY_NWK_SEC_MATERIAL_TABLE_START+1"},
		{nvram.ItemLegacy, 0x0E00, "0x0E00"},
		{nvram.ItemAddrMgr, 0x00FF, "0x00FF"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			key := backup.SubIDKey(tt.item, tt.subID)
			assert.Equal(t, tt.want, key)

			back, err := backup.ParseSubIDKey(tt.item, key)
			require.NoError(t, err)
			assert.Equal(t, tt.subID, back)
		})
	}
}
