// Package wire defines the binary record formats Z-Stack keeps in NVRAM.
//
// Records are packed C structures in little-endian byte order. Firmware
// built for the CC13x2/CC26x2 family stores them with natural alignment:
// every integer field starts at a multiple of its own size and the record is
// padded to a multiple of its widest field. Padding bytes are 0xFF, which is
// what erased flash reads back as. Older CC2530/CC2531 builds store records
// unaligned. Every Marshal/Unmarshal call therefore takes an align flag,
// normally taken from the session's layout profile.
//
// # Closed enumerations
//
// Enumerated fields (KeyType, KeyAttributes, AuthenticationOption, Status)
// decode any raw value. Values outside the known set report Known() == false
// and print as unknown_0xNN; it is up to the interpreting code to warn about
// them through its logger.
package wire
