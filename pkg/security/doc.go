// Package security reads and writes the Trust Center device registry held in
// Z-Stack NVRAM: address bindings, link keys and their frame counters.
//
// Link keys live in one of two places. Keys derivable from the network's TCLK
// seed are stored as hashed entries (address, seed shift, counters). All other
// keys are stored raw in the APS key data table and referenced from the APS
// link key indirection table by address manager slot.
//
// Writes are build-then-commit: every table is built and every capacity is
// checked before the first write reaches the radio. The commit itself is a
// sequence of independent table writes with no cross-table atomicity.
package security
