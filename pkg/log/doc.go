// Package log captures NVRAM exchanges with the radio.
//
// Every item read or write issued by an nvram session is reported as an Event
// to a Logger. This is separate from operational logging (slog): the capture is
// a complete machine-readable trace of what was read from and written to the
// coprocessor, useful for replaying a failed migration.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For field diagnostics: write to a binary file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/znp/nvram.nvlog")
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(console, file)
//
// Item values can contain link keys. Sessions only attach value bytes to
// events when data capture is enabled, and FileLogger creates files readable
// by the owner only.
//
// # File Format
//
// Log files are a sequence of CBOR encoded events with integer keys. Reader
// streams them back, optionally through a Filter.
package log
