package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znp-protocol/znp-go/pkg/log"
	"github.com/znp-protocol/znp-go/pkg/nvram"
)

func exportEvents(t *testing.T) string {
	t.Helper()
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	return createTestLogFile(t, []log.Event{
		itemEvent(ts, log.DirectionIn, log.OperationRead, nvram.ItemAddrMgr, 0, 16),
		{
			Timestamp: ts.Add(time.Second),
			SessionID: testSession,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Operation: log.OperationRead,
				ItemID:    uint16(nvram.ItemLegacy),
				SubID:     uint16(nvram.OsalTCLKSeed),
				Message:   "security error",
			},
		},
	})
}

func TestExportJSONL(t *testing.T) {
	path := exportEvents(t)
	out := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, RunExport(path, "jsonl", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first log.Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, testSession, first.SessionID)
	require.NotNil(t, first.Item)
	assert.Equal(t, 16, first.Item.Size)
}

func TestExportCSV(t *testing.T) {
	path := exportEvents(t)
	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var buf bytes.Buffer
	require.NoError(t, export(reader, "csv", &buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"2026-01-28T10:15:32.000000Z", testSession, "3.30", "IN", "ITEM", "READ", "ADDRMGR[0]", "16", ""}, rows[1])
	assert.Equal(t, "ERROR", rows[2][4])
	assert.Equal(t, nvram.OsalTCLKSeed.String(), rows[2][6])
	assert.Equal(t, "security error", rows[2][8])
}

func TestExportUnknownFormat(t *testing.T) {
	path := exportEvents(t)
	err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out.xml"))
	assert.ErrorContains(t, err, "unknown format")
}
