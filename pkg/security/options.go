package security

import (
	"log/slog"

	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// DefaultCounterIncrement is added to every stored tx frame counter on write,
// so a restored coordinator never reuses a counter its devices have seen.
const DefaultCounterIncrement uint32 = 2500

// Config configures a Registry.
type Config struct {
	// CounterIncrement is the default tx frame counter margin for writes.
	CounterIncrement uint32

	// Logger is the optional logger for diagnostics.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the default counter margin.
func DefaultConfig() Config {
	return Config{
		CounterIncrement: DefaultCounterIncrement,
	}
}

// WriteOption customizes one WriteDevices call.
type WriteOption func(*writeOptions)

type writeOptions struct {
	increment uint32
	seed      *zigbee.KeyData
}

// WithCounterIncrement overrides the tx frame counter margin.
func WithCounterIncrement(n uint32) WriteOption {
	return func(o *writeOptions) {
		o.increment = n
	}
}

// WithSeed writes keys against seed instead of the optimal one. Firmware
// without a TCLK seed ignores it and stores every key raw.
func WithSeed(seed zigbee.KeyData) WriteOption {
	return func(o *writeOptions) {
		o.seed = &seed
	}
}
