package tclk

import (
	"iter"

	"github.com/znp-protocol/znp-go/pkg/zigbee"
)

// Pair is a device address with the link key it must end up with.
type Pair struct {
	IEEE zigbee.EUI64
	Key  zigbee.KeyData
}

// Matches counts the pairs whose key is derivable from seed at any shift.
func Matches(pairs []Pair, seed zigbee.KeyData) int {
	count := 0
	for _, p := range pairs {
		if _, ok := FindKeyShift(p.IEEE, p.Key, seed); ok {
			count++
		}
	}
	return count
}

// SeedCandidates yields, for each pair in order, the seed that derives its
// key at shift 0 together with the number of pairs that seed can derive.
// Every rotation of a seed derives the same keys, so shift 0 is enough.
// The sequence stops after a candidate that derives every pair.
func SeedCandidates(pairs []Pair) iter.Seq2[int, zigbee.KeyData] {
	return func(yield func(int, zigbee.KeyData) bool) {
		for _, p := range pairs {
			seed := ComputeSeed(p.IEEE, p.Key, 0)
			count := Matches(pairs, seed)
			if !yield(count, seed) || count == len(pairs) {
				return
			}
		}
	}
}

// BestSeed returns the candidate seed deriving the most keys. The earliest
// candidate wins a tie. ok is false when pairs is empty.
func BestSeed(pairs []Pair) (seed zigbee.KeyData, count int, ok bool) {
	for c, s := range SeedCandidates(pairs) {
		if !ok || c > count {
			seed, count, ok = s, c, true
		}
	}
	return seed, count, ok
}
