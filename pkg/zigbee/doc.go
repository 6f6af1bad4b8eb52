// Package zigbee defines the address and key value types shared by the
// NVRAM, key derivation and registry packages.
//
// Addresses are held in their serialized (little-endian) byte order, which
// is the order in which they appear inside NVRAM records and the order the
// link-key cipher operates on. String forms use the conventional big-endian
// colon notation:
//
//	ieee, _ := zigbee.ParseEUI64("00:12:4b:00:1c:a1:b8:46")
//	fmt.Println(ieee[0]) // 0x46
package zigbee
