package wire

import (
	"fmt"
	"strings"
)

func unknownName(v uint8) string {
	return fmt.Sprintf("unknown_0x%02X", v)
}

// KeyType is the key type tag stored in hashed link-key entries.
type KeyType uint8

const (
	KeyTypeNone      KeyType = 0
	KeyTypeNWK       KeyType = 1
	KeyTypeAppMaster KeyType = 2
	KeyTypeAppLink   KeyType = 3
	KeyTypeTCLink    KeyType = 4

	// KeyTypeUnknown6 appears in the Z-Stack sources as a bare 6.
	KeyTypeUnknown6 KeyType = 6
)

// Known reports whether k is a defined key type.
func (k KeyType) Known() bool {
	switch k {
	case KeyTypeNone, KeyTypeNWK, KeyTypeAppMaster, KeyTypeAppLink, KeyTypeTCLink, KeyTypeUnknown6:
		return true
	}
	return false
}

// String returns the key type name.
func (k KeyType) String() string {
	switch k {
	case KeyTypeNone:
		return "NONE"
	case KeyTypeNWK:
		return "NWK"
	case KeyTypeAppMaster:
		return "APP_MASTER"
	case KeyTypeAppLink:
		return "APP_LINK"
	case KeyTypeTCLink:
		return "TC_LINK"
	case KeyTypeUnknown6:
		return "UNKNOWN_6"
	default:
		return unknownName(uint8(k))
	}
}

// KeyAttributes describes how a hashed link key was established.
type KeyAttributes uint8

const (
	// KeyAttrProvisional is used for install-code derived keys.
	KeyAttrProvisional KeyAttributes = 0x00
	// KeyAttrUnverified is a unique key that is not verified yet.
	KeyAttrUnverified KeyAttributes = 0x01
	// KeyAttrVerified is a unique key verified by the coordinator.
	KeyAttrVerified KeyAttributes = 0x02

	KeyAttrDistributedDefault KeyAttributes = 0xFC
	KeyAttrNonR21NwkJoined    KeyAttributes = 0xFD
	// KeyAttrVerifiedJoiningDev marks keys stored as plain text rather than seed hashed.
	KeyAttrVerifiedJoiningDev KeyAttributes = 0xFE
	KeyAttrDefault            KeyAttributes = 0xFF
)

// Known reports whether a is a defined attribute value.
func (a KeyAttributes) Known() bool {
	switch a {
	case KeyAttrProvisional, KeyAttrUnverified, KeyAttrVerified,
		KeyAttrDistributedDefault, KeyAttrNonR21NwkJoined, KeyAttrVerifiedJoiningDev, KeyAttrDefault:
		return true
	}
	return false
}

// String returns the attribute name.
func (a KeyAttributes) String() string {
	switch a {
	case KeyAttrProvisional:
		return "PROVISIONAL_KEY"
	case KeyAttrUnverified:
		return "UNVERIFIED_KEY"
	case KeyAttrVerified:
		return "VERIFIED_KEY"
	case KeyAttrDistributedDefault:
		return "DISTRIBUTED_DEFAULT_KEY"
	case KeyAttrNonR21NwkJoined:
		return "NON_R21_NWK_JOINED"
	case KeyAttrVerifiedJoiningDev:
		return "VERIFIED_KEY_JOINING_DEV"
	case KeyAttrDefault:
		return "DEFAULT_KEY"
	default:
		return unknownName(uint8(a))
	}
}

// AuthenticationOption is the authentication state of an indirection entry.
type AuthenticationOption uint8

const (
	AuthNotAuthenticated  AuthenticationOption = 0x00
	AuthAuthenticatedCBCK AuthenticationOption = 0x01
	AuthAuthenticatedEA   AuthenticationOption = 0x02
)

// Known reports whether o is a defined option.
func (o AuthenticationOption) Known() bool {
	return o <= AuthAuthenticatedEA
}

// String returns the option name.
func (o AuthenticationOption) String() string {
	switch o {
	case AuthNotAuthenticated:
		return "NotAuthenticated"
	case AuthAuthenticatedCBCK:
		return "AuthenticatedCBCK"
	case AuthAuthenticatedEA:
		return "AuthenticatedEA"
	default:
		return unknownName(uint8(o))
	}
}

// AddrMgrUserType is the role bitmask of an address manager entry.
type AddrMgrUserType uint8

const (
	AddrMgrDefault  AddrMgrUserType = 0x00
	AddrMgrAssoc    AddrMgrUserType = 0x01
	AddrMgrSecurity AddrMgrUserType = 0x02
	AddrMgrBinding  AddrMgrUserType = 0x04
	AddrMgrPrivate1 AddrMgrUserType = 0x08
)

// Has reports whether every bit of flag is set.
func (u AddrMgrUserType) Has(flag AddrMgrUserType) bool {
	return u&flag == flag
}

// String returns the set flags joined with '|'.
func (u AddrMgrUserType) String() string {
	if u == AddrMgrDefault {
		return "Default"
	}

	var parts []string
	names := []struct {
		flag AddrMgrUserType
		name string
	}{
		{AddrMgrAssoc, "Assoc"},
		{AddrMgrSecurity, "Security"},
		{AddrMgrBinding, "Binding"},
		{AddrMgrPrivate1, "Private1"},
	}

	rest := u
	for _, n := range names {
		if u.Has(n.flag) {
			parts = append(parts, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02X", uint8(rest)))
	}
	return strings.Join(parts, "|")
}
