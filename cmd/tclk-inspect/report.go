package main

import (
	"fmt"
	"io"

	"github.com/znp-protocol/znp-go/pkg/security"
	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// Report is everything the inspector learned from a backup.
type Report struct {
	Firmware       string                  `json:"firmware"`
	Seed           *zigbee.KeyData         `json:"tclk_seed,omitempty"`
	TCFrameCounter *uint32                 `json:"tc_frame_counter,omitempty"`
	Devices        []security.StoredDevice `json:"devices"`
}

func printReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "Z-Stack %s\n", r.Firmware)
	if r.Seed != nil {
		fmt.Fprintf(w, "TCLK seed:        %s\n", r.Seed)
	} else {
		fmt.Fprintln(w, "TCLK seed:        none")
	}
	if r.TCFrameCounter != nil {
		fmt.Fprintf(w, "TC frame counter: %d\n", *r.TCFrameCounter)
	}
	fmt.Fprintln(w)

	keyed := 0
	fmt.Fprintf(w, "Devices: %d\n", len(r.Devices))
	for _, d := range r.Devices {
		fmt.Fprintf(w, "  %s  %s", d.IEEE, d.NWK)
		if d.HasKey() {
			keyed++
			fmt.Fprintf(w, "  key %s  tx %d  rx %d", d.APSLinkKey, *d.TxCounter, *d.RxCounter)
			if d.HashedLinkKeyShift != nil {
				fmt.Fprintf(w, "  (seed shift %d)", *d.HashedLinkKeyShift)
			}
		}
		fmt.Fprintln(w)
	}
	if len(r.Devices) > 0 {
		fmt.Fprintf(w, "\n%d of %d devices have a link key\n", keyed, len(r.Devices))
	}
}
