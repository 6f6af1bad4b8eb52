package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Exchange logs are a plain concatenation of CBOR events, one per NVRAM
// read or write, so a log cut short by a crash is still readable up to its
// last complete event.
var (
	// logEncMode fixes key order so identical exchanges encode identically.
	logEncMode cbor.EncMode

	logDecMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	logEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("nvram event log: CBOR encoder mode: %v", err))
	}

	// Unknown keys are skipped so znp-log reads logs from newer builds.
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	logDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("nvram event log: CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes one exchange event.
func EncodeEvent(event Event) ([]byte, error) {
	return logEncMode.Marshal(event)
}

// DecodeEvent decodes one exchange event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := logDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	return event, nil
}

// NewEncoder returns an encoder appending events to an exchange log.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return logEncMode.NewEncoder(w)
}

// NewDecoder returns a decoder reading events back from an exchange log.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return logDecMode.NewDecoder(r)
}
