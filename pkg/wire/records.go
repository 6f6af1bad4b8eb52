package wire

import (
	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// AddrMgrEntry binds a short address to an extended address.
type AddrMgrEntry struct {
	Type    AddrMgrUserType
	NWK     zigbee.NWK
	ExtAddr zigbee.EUI64
}

// EmptyAddrMgrEntry is the contents of an unused address manager slot.
var EmptyAddrMgrEntry = AddrMgrEntry{
	Type:    AddrMgrDefault,
	NWK:     zigbee.NWKUnused,
	ExtAddr: zigbee.BroadcastEUI64,
}

func (r *AddrMgrEntry) MarshalNV(e *Encoder) {
	e.Uint8(uint8(r.Type))
	e.Uint16(uint16(r.NWK))
	e.Bytes(r.ExtAddr[:])
}

func (r *AddrMgrEntry) UnmarshalNV(d *Decoder) {
	r.Type = AddrMgrUserType(d.Uint8())
	r.NWK = zigbee.NWK(d.Uint16())
	d.Bytes(r.ExtAddr[:])
}

// TCLKDevEntry is a hashed Trust Center link key slot.
type TCLKDevEntry struct {
	TxFrameCounter uint32
	RxFrameCounter uint32
	ExtAddr        zigbee.EUI64
	KeyAttributes  KeyAttributes
	KeyType        KeyType

	// SeedShift is the seed rotation for unique keys, or the install code
	// table offset for install-code derived keys.
	SeedShift uint8
}

func (r *TCLKDevEntry) MarshalNV(e *Encoder) {
	e.Uint32(r.TxFrameCounter)
	e.Uint32(r.RxFrameCounter)
	e.Bytes(r.ExtAddr[:])
	e.Uint8(uint8(r.KeyAttributes))
	e.Uint8(uint8(r.KeyType))
	e.Uint8(r.SeedShift)
}

func (r *TCLKDevEntry) UnmarshalNV(d *Decoder) {
	r.TxFrameCounter = d.Uint32()
	r.RxFrameCounter = d.Uint32()
	d.Bytes(r.ExtAddr[:])
	r.KeyAttributes = KeyAttributes(d.Uint8())
	r.KeyType = KeyType(d.Uint8())
	r.SeedShift = d.Uint8()
}

// EmptyTCLKDevEntry fills unused hashed link key slots.
var EmptyTCLKDevEntry = TCLKDevEntry{
	ExtAddr:       zigbee.ZeroEUI64,
	KeyAttributes: KeyAttrProvisional,
	KeyType:       KeyTypeNone,
}

// APSKeyDataEntry is a raw link key slot.
type APSKeyDataEntry struct {
	Key            zigbee.KeyData
	TxFrameCounter uint32
	RxFrameCounter uint32
}

func (r *APSKeyDataEntry) MarshalNV(e *Encoder) {
	e.Bytes(r.Key[:])
	e.Uint32(r.TxFrameCounter)
	e.Uint32(r.RxFrameCounter)
}

func (r *APSKeyDataEntry) UnmarshalNV(d *Decoder) {
	d.Bytes(r.Key[:])
	r.TxFrameCounter = d.Uint32()
	r.RxFrameCounter = d.Uint32()
}

// EmptyAPSKeyDataEntry fills unused raw link key slots.
var EmptyAPSKeyDataEntry = APSKeyDataEntry{}

// APSLinkKeyTableEntry points an address manager slot at a raw key slot.
type APSLinkKeyTableEntry struct {
	AddressManagerIndex uint16
	LinkKeyNvID         uint16
	AuthenticationState AuthenticationOption
}

func (r *APSLinkKeyTableEntry) MarshalNV(e *Encoder) {
	e.Uint16(r.AddressManagerIndex)
	e.Uint16(r.LinkKeyNvID)
	e.Uint8(uint8(r.AuthenticationState))
}

func (r *APSLinkKeyTableEntry) UnmarshalNV(d *Decoder) {
	r.AddressManagerIndex = d.Uint16()
	r.LinkKeyNvID = d.Uint16()
	r.AuthenticationState = AuthenticationOption(d.Uint8())
}

// APSLinkKeyTable is the indirection table: a uint16 entry count followed by
// the entries. It is stored unaligned and zero padded to its allocated size.
type APSLinkKeyTable []APSLinkKeyTableEntry

func (t *APSLinkKeyTable) MarshalNV(e *Encoder) {
	e.Uint16(uint16(len(*t)))
	for i := range *t {
		e.Record(&(*t)[i])
	}
}

func (t *APSLinkKeyTable) UnmarshalNV(d *Decoder) {
	n := int(d.Uint16())
	if d.Err() != nil {
		return
	}

	out := make(APSLinkKeyTable, 0, n)
	for range n {
		var entry APSLinkKeyTableEntry
		d.Record(&entry)
		if d.Err() != nil {
			return
		}
		out = append(out, entry)
	}
	*t = out
}

// NwkSecMaterialDesc holds the outgoing NWK frame counter for one network.
type NwkSecMaterialDesc struct {
	FrameCounter  uint32
	ExtendedPanID zigbee.ExtendedPanID
}

func (r *NwkSecMaterialDesc) MarshalNV(e *Encoder) {
	e.Uint32(r.FrameCounter)
	e.Bytes(r.ExtendedPanID[:])
}

func (r *NwkSecMaterialDesc) UnmarshalNV(d *Decoder) {
	r.FrameCounter = d.Uint32()
	d.Bytes(r.ExtendedPanID[:])
}

// NwkKeyDesc is a network key with its sequence number.
type NwkKeyDesc struct {
	KeySeqNum uint8
	Key       zigbee.KeyData
}

func (r *NwkKeyDesc) MarshalNV(e *Encoder) {
	e.Uint8(r.KeySeqNum)
	e.Bytes(r.Key[:])
}

func (r *NwkKeyDesc) UnmarshalNV(d *Decoder) {
	r.KeySeqNum = d.Uint8()
	d.Bytes(r.Key[:])
}

// NwkActiveKeyItems is the NWKKEY item of Z-Stack Home 1.2.
type NwkActiveKeyItems struct {
	Active       NwkKeyDesc
	FrameCounter uint32
}

func (r *NwkActiveKeyItems) MarshalNV(e *Encoder) {
	e.Record(&r.Active)
	e.Uint32(r.FrameCounter)
}

func (r *NwkActiveKeyItems) UnmarshalNV(d *Decoder) {
	d.Record(&r.Active)
	r.FrameCounter = d.Uint32()
}

// Compile-time interface satisfaction checks.
var (
	_ Record = (*AddrMgrEntry)(nil)
	_ Record = (*TCLKDevEntry)(nil)
	_ Record = (*APSKeyDataEntry)(nil)
	_ Record = (*APSLinkKeyTableEntry)(nil)
	_ Record = (*APSLinkKeyTable)(nil)
	_ Record = (*NwkSecMaterialDesc)(nil)
	_ Record = (*NwkKeyDesc)(nil)
	_ Record = (*NwkActiveKeyItems)(nil)
)
