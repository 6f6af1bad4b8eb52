package version

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed layouts/*.yaml
var layoutFS embed.FS

// TableKind is the addressing scheme of an NVRAM table.
type TableKind string

const (
	// KindOsalRange stores one record per legacy OSAL id in [Start, End].
	KindOsalRange TableKind = "osal-range"
	// KindExNv stores one record per ordinal of an extended item.
	KindExNv TableKind = "exnv"
	// KindOsalArray packs a fixed array of records into the single OSAL item Item.
	KindOsalArray TableKind = "osal-array"
)

// Logical table names used in the manifests.
const (
	TableAddrMgr        = "addr_mgr"
	TableTCLK           = "tclk"
	TableAPSKeyData     = "aps_key_data"
	TableNwkSecMaterial = "nwk_sec_material"
)

// FrameCounterSource says where the Trust Center keeps its NWK frame counter.
type FrameCounterSource string

const (
	FrameCounterNwkKey      FrameCounterSource = "nwk_key"
	FrameCounterSecMaterial FrameCounterSource = "sec_material"
)

// LayoutManifest describes how one firmware generation lays out its NVRAM.
type LayoutManifest struct {
	Firmware    string               `yaml:"firmware"`
	Description string               `yaml:"description"`
	Profile     Profile              `yaml:"profile"`
	Tables      map[string]TableSpec `yaml:"tables"`
}

// Profile holds the generation-wide storage properties.
type Profile struct {
	// AlignStructs is set when records are stored naturally aligned.
	AlignStructs bool `yaml:"align_structs"`
	// ExtendedItems is set when the firmware accepts items other than LEGACY.
	ExtendedItems bool `yaml:"extended_items"`
	// TCLKSeed is set when the firmware stores hashed keys against a seed.
	TCLKSeed bool `yaml:"tclk_seed"`
	// RawKeyBase is subtracted from LinkKeyNvId to index the raw key table.
	RawKeyBase     uint16             `yaml:"raw_key_base"`
	TCFrameCounter FrameCounterSource `yaml:"tc_frame_counter"`
}

// TableSpec locates a table.
type TableSpec struct {
	Kind  TableKind `yaml:"kind"`
	Item  uint16    `yaml:"item"`
	Start uint16    `yaml:"start"`
	End   uint16    `yaml:"end"`
}

// ---------------------------------------------------------------------------
// Cache
// ---------------------------------------------------------------------------

var (
	cacheMu sync.RWMutex
	cache   = make(map[Firmware]*LayoutManifest)
)

// LoadLayout loads the layout manifest of a supported firmware generation.
func LoadLayout(fw Firmware) (*LayoutManifest, error) {
	if !fw.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFirmware, fw)
	}

	cacheMu.RLock()
	if m, ok := cache[fw]; ok {
		cacheMu.RUnlock()
		return m, nil
	}
	cacheMu.RUnlock()

	m, err := loadLayoutFile(fw.layoutName())
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[fw] = m
	cacheMu.Unlock()

	return m, nil
}

func loadLayoutFile(name string) (*LayoutManifest, error) {
	data, err := layoutFS.ReadFile("layouts/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("layout %q not found: %w", name, err)
	}

	var m LayoutManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing layout %q: %w", name, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("layout %q: %w", name, err)
	}
	return &m, nil
}

// AvailableLayouts returns the names of all embedded layout manifests.
func AvailableLayouts() ([]string, error) {
	entries, err := layoutFS.ReadDir("layouts")
	if err != nil {
		return nil, fmt.Errorf("reading layouts directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			names = append(names, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Table returns the named table, if the generation has it.
func (m *LayoutManifest) Table(name string) (TableSpec, bool) {
	ts, ok := m.Tables[name]
	return ts, ok
}

// TableNames returns the manifest's table names, sorted.
func (m *LayoutManifest) TableNames() []string {
	out := make([]string, 0, len(m.Tables))
	for name := range m.Tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks that the manifest is internally consistent.
func (m *LayoutManifest) Validate() error {
	if _, err := Parse(m.Firmware); err != nil {
		return err
	}

	switch m.Profile.TCFrameCounter {
	case FrameCounterNwkKey, FrameCounterSecMaterial:
	default:
		return fmt.Errorf("unknown tc_frame_counter %q", m.Profile.TCFrameCounter)
	}

	if _, ok := m.Tables[TableAddrMgr]; !ok {
		return fmt.Errorf("missing %s table", TableAddrMgr)
	}
	if _, ok := m.Tables[TableAPSKeyData]; !ok {
		return fmt.Errorf("missing %s table", TableAPSKeyData)
	}
	if _, ok := m.Tables[TableTCLK]; m.Profile.TCLKSeed && !ok {
		return fmt.Errorf("tclk_seed set without a %s table", TableTCLK)
	}

	for name, ts := range m.Tables {
		switch ts.Kind {
		case KindOsalRange:
			if ts.Start == 0 || ts.End < ts.Start {
				return fmt.Errorf("table %s: bad range 0x%04X-0x%04X", name, ts.Start, ts.End)
			}
		case KindExNv:
			if !m.Profile.ExtendedItems {
				return fmt.Errorf("table %s: exnv table without extended_items", name)
			}
		case KindOsalArray:
		default:
			return fmt.Errorf("table %s: unknown kind %q", name, ts.Kind)
		}
	}
	return nil
}
