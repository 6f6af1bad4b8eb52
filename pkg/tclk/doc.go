// Package tclk derives Trust Center link keys from the network-wide TCLK seed.
//
// Z-Stack 3.x avoids storing most link keys by deriving them from one shared
// 16 byte seed: the seed is rotated left by a per-device shift and XORed with
// the device's extended address repeated twice. The hashed key table then
// only needs the address, the shift and the frame counters.
//
// Everything in this package is pure and safe for concurrent use.
package tclk
