// Package backup dumps and restores raw NVRAM contents.
//
// A Document groups items by NV item name. LEGACY items are keyed by OSAL
// name, with ids inside a legacy table written as "<TABLE_START>+<offset>";
// extended items are keyed by their hex sub-id. Values are lowercase hex:
//
//	{
//	  "LEGACY": {"TCLK_SEED": "5a69...", "LEGACY_TCLK_TABLE_START+0": "0000..."},
//	  "TCLK_TABLE": {"0x0000": "0000..."}
//	}
package backup
