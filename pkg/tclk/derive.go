package tclk

import (
	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// MaxShift is the largest seed rotation firmware accepts.
const MaxShift = zigbee.KeySize - 1

// rotate returns b rotated left by n bytes. Negative n rotates right.
func rotate(b zigbee.KeyData, n int) zigbee.KeyData {
	var out zigbee.KeyData
	n = ((n % len(b)) + len(b)) % len(b)
	for i := range out {
		out[i] = b[(i+n)%len(b)]
	}
	return out
}

// mask XORs b with the serialized extended address repeated twice.
func mask(ieee zigbee.EUI64, b zigbee.KeyData) zigbee.KeyData {
	for i := range b {
		b[i] ^= ieee[i%zigbee.EUI64Size]
	}
	return b
}

// ComputeKey derives the link key of ieee from seed at the given shift.
func ComputeKey(ieee zigbee.EUI64, seed zigbee.KeyData, shift uint8) zigbee.KeyData {
	return mask(ieee, rotate(seed, int(shift)))
}

// ComputeSeed is the inverse of ComputeKey: it returns the seed from which
// key is derived for ieee at the given shift.
func ComputeSeed(ieee zigbee.EUI64, key zigbee.KeyData, shift uint8) zigbee.KeyData {
	return rotate(mask(ieee, key), -int(shift))
}

// FindKeyShift returns the first shift at which key is derivable from seed.
func FindKeyShift(ieee zigbee.EUI64, key zigbee.KeyData, seed zigbee.KeyData) (uint8, bool) {
	for shift := range uint8(MaxShift + 1) {
		if ComputeSeed(ieee, key, shift) == seed {
			return shift, true
		}
	}
	return 0, false
}
