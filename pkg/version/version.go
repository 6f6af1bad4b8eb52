// Package version identifies Z-Stack firmware generations and provides the
// NVRAM layout manifest of each supported generation.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedFirmware is returned for firmware generations without a layout.
var ErrUnsupportedFirmware = errors.New("unsupported firmware version")

// Firmware is a parsed "major.minor" Z-Stack generation.
type Firmware struct {
	Major uint16
	Minor uint16
}

// Supported firmware generations.
var (
	ZStack12  = Firmware{Major: 1, Minor: 2}
	ZStack30  = Firmware{Major: 3, Minor: 0}
	ZStack330 = Firmware{Major: 3, Minor: 30}
)

// Parse parses a "major.minor" firmware version string.
func Parse(s string) (Firmware, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return Firmware{}, fmt.Errorf("invalid firmware version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return Firmware{}, fmt.Errorf("invalid firmware version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return Firmware{}, fmt.Errorf("invalid firmware version %q: bad minor component", s)
	}

	return Firmware{Major: uint16(major), Minor: uint16(minor)}, nil
}

// Resolve parses s and checks that it names a supported generation.
func Resolve(s string) (Firmware, error) {
	fw, err := Parse(s)
	if err != nil {
		return Firmware{}, fmt.Errorf("%w: %v", ErrUnsupportedFirmware, err)
	}
	if !fw.Supported() {
		return Firmware{}, fmt.Errorf("%w: %s", ErrUnsupportedFirmware, fw)
	}
	return fw, nil
}

// String returns the version as "major.minor".
func (f Firmware) String() string {
	return fmt.Sprintf("%d.%d", f.Major, f.Minor)
}

// Supported reports whether f is one of the known generations.
func (f Firmware) Supported() bool {
	switch f {
	case ZStack12, ZStack30, ZStack330:
		return true
	}
	return false
}

// layoutName is the manifest file name without extension.
func (f Firmware) layoutName() string {
	return "zstack-" + f.String()
}
