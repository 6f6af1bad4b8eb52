package nvram

import (
	"fmt"
	"strconv"
	"strings"
)

// ItemID is an extended NV item id. Legacy OSAL items are addressed as
// ItemLegacy with the OSAL id as the sub-id.
type ItemID uint16

const (
	ItemLegacy              ItemID = 0x0000
	ItemAddrMgr             ItemID = 0x0001
	ItemBindingTable        ItemID = 0x0002
	ItemDeviceList          ItemID = 0x0003
	ItemTCLKTable           ItemID = 0x0004
	ItemTCLKICTable         ItemID = 0x0005
	ItemAPSKeyDataTable     ItemID = 0x0006
	ItemNwkSecMaterialTable ItemID = 0x0007
)

var itemNames = map[ItemID]string{
	ItemLegacy:              "LEGACY",
	ItemAddrMgr:             "ADDRMGR",
	ItemBindingTable:        "BINDING_TABLE",
	ItemDeviceList:          "DEVICE_LIST",
	ItemTCLKTable:           "TCLK_TABLE",
	ItemTCLKICTable:         "TCLK_IC_TABLE",
	ItemAPSKeyDataTable:     "APS_KEY_DATA_TABLE",
	ItemNwkSecMaterialTable: "NWK_SEC_MATERIAL_TABLE",
}

// ExtendedItems lists the extended items in id order.
var ExtendedItems = []ItemID{
	ItemAddrMgr, ItemBindingTable, ItemDeviceList, ItemTCLKTable,
	ItemTCLKICTable, ItemAPSKeyDataTable, ItemNwkSecMaterialTable,
}

// String returns the item name, or its hex id when unnamed.
func (i ItemID) String() string {
	if name, ok := itemNames[i]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(i))
}

// ParseItemID parses an item name as returned by String.
func ParseItemID(s string) (ItemID, error) {
	for id, name := range itemNames {
		if name == s {
			return id, nil
		}
	}
	v, err := parseHex16(s)
	if err != nil {
		return 0, fmt.Errorf("unknown item %q", s)
	}
	return ItemID(v), nil
}

// OsalID is a legacy OSAL NV id.
type OsalID uint16

const (
	OsalExtAddr              OsalID = 0x0001
	OsalStartupOption        OsalID = 0x0003
	OsalNIB                  OsalID = 0x0021
	OsalAddrMgr              OsalID = 0x0023
	OsalPollRateOld16        OsalID = 0x0024
	OsalNwkActiveKeyInfo     OsalID = 0x003A
	OsalNwkAlternKeyInfo     OsalID = 0x003B
	OsalAPSLinkKeyTable      OsalID = 0x004C
	OsalHasConfiguredZStack3 OsalID = 0x0060
	OsalNwkKey               OsalID = 0x0082
	OsalTCLKSeed             OsalID = 0x0101
	OsalHasConfiguredZStack1 OsalID = 0x0F00

	OsalLegacyNwkSecMaterialTableStart OsalID = 0x0075
	OsalLegacyNwkSecMaterialTableEnd   OsalID = 0x0080
	OsalLegacyTCLKICTableStart         OsalID = 0x0104
	OsalLegacyTCLKICTableEnd           OsalID = 0x0110
	OsalLegacyTCLKTableStart           OsalID = 0x0111
	OsalLegacyTCLKTableEnd             OsalID = 0x01FF
	OsalLegacyAPSLinkKeyDataStart      OsalID = 0x0201
	OsalLegacyAPSLinkKeyDataEnd        OsalID = 0x02FF
)

var osalNames = map[OsalID]string{
	OsalExtAddr:              "EXTADDR",
	OsalStartupOption:        "STARTUP_OPTION",
	OsalNIB:                  "NIB",
	OsalAddrMgr:              "ADDRMGR",
	OsalPollRateOld16:        "POLL_RATE_OLD16",
	OsalNwkActiveKeyInfo:     "NWK_ACTIVE_KEY_INFO",
	OsalNwkAlternKeyInfo:     "NWK_ALTERN_KEY_INFO",
	OsalAPSLinkKeyTable:      "APS_LINK_KEY_TABLE",
	OsalHasConfiguredZStack3: "HAS_CONFIGURED_ZSTACK3",
	OsalNwkKey:               "NWKKEY",
	OsalTCLKSeed:             "TCLK_SEED",
	OsalHasConfiguredZStack1: "HAS_CONFIGURED_ZSTACK1",
}

// OsalRange is a contiguous block of OSAL ids holding one table.
type OsalRange struct {
	Name  string
	Start OsalID
	End   OsalID
}

// Contains reports whether id lies in the range.
func (r OsalRange) Contains(id OsalID) bool {
	return id >= r.Start && id <= r.End
}

// OsalRanges lists the legacy table ranges.
var OsalRanges = []OsalRange{
	{"LEGACY_NWK_SEC_MATERIAL_TABLE_START", OsalLegacyNwkSecMaterialTableStart, OsalLegacyNwkSecMaterialTableEnd},
	{"LEGACY_TCLK_IC_TABLE_START", OsalLegacyTCLKICTableStart, OsalLegacyTCLKICTableEnd},
	{"LEGACY_TCLK_TABLE_START", OsalLegacyTCLKTableStart, OsalLegacyTCLKTableEnd},
	{"LEGACY_APS_LINK_KEY_DATA_START", OsalLegacyAPSLinkKeyDataStart, OsalLegacyAPSLinkKeyDataEnd},
}

// NamedOsalIDs returns the single (non-table) OSAL ids in id order.
func NamedOsalIDs() []OsalID {
	return []OsalID{
		OsalExtAddr, OsalStartupOption, OsalNIB, OsalAddrMgr, OsalPollRateOld16,
		OsalNwkActiveKeyInfo, OsalNwkAlternKeyInfo, OsalAPSLinkKeyTable,
		OsalHasConfiguredZStack3, OsalNwkKey, OsalTCLKSeed, OsalHasConfiguredZStack1,
	}
}

// String returns the OSAL name. Ids inside a table range are written as
// "<RANGE_START>+<offset>", unnamed ids as hex.
func (o OsalID) String() string {
	if name, ok := osalNames[o]; ok {
		return name
	}
	for _, r := range OsalRanges {
		if r.Contains(o) {
			return fmt.Sprintf("%s+%d", r.Name, o-r.Start)
		}
	}
	return fmt.Sprintf("0x%04X", uint16(o))
}

// ParseOsalID parses a name as returned by String.
func ParseOsalID(s string) (OsalID, error) {
	if base, offset, ok := strings.Cut(s, "+"); ok {
		n, err := strconv.ParseUint(offset, 10, 16)
		if err != nil {
			return 0, fmt.Errorf("bad table offset in %q", s)
		}
		for _, r := range OsalRanges {
			if r.Name != base {
				continue
			}
			id := r.Start + OsalID(n)
			if !r.Contains(id) {
				return 0, fmt.Errorf("offset %d outside %s", n, r.Name)
			}
			return id, nil
		}
		return 0, fmt.Errorf("unknown OSAL table %q", base)
	}

	for id, name := range osalNames {
		if name == s {
			return id, nil
		}
	}
	v, err := parseHex16(s)
	if err != nil {
		return 0, fmt.Errorf("unknown OSAL item %q", s)
	}
	return OsalID(v), nil
}

func parseHex16(s string) (uint16, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s[2:], 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
