// Package nvram reads and writes Z-Stack non-volatile items.
//
// An NVRAM session wraps a Transport (the MT command layer of a radio
// connection) together with the Layout of the radio's firmware generation.
// The layout hides how tables are stored: as one OSAL id per record in
// Z-Stack 3.0, as ordinals of an extended item in Z-Stack 3.30, or as a
// fixed array packed into a single item.
//
// # Concurrency
//
// A session issues strictly sequential exchanges. Every method takes the
// session lock, and ReadTable holds it for the whole iteration, so a table is
// never read interleaved with another caller. Call back into the session only
// after the loop has finished.
//
// # Errors
//
// Absent items report ErrItemNotFound. Items the firmware refuses to disclose
// report ErrSecurity; callers that can work without the item should treat it
// as a missing capability. There are no retries at this layer.
package nvram
