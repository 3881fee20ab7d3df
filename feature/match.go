package feature

import "math/bits"

// Match pairs a query descriptor index with its best train index.
type Match struct {
	Query, Train int
	Distance     int
}

// HammingDistance counts differing descriptor bits.
func HammingDistance(a, b Descriptor) int {
	return bits.OnesCount64(a[0]^b[0]) + bits.OnesCount64(a[1]^b[1]) +
		bits.OnesCount64(a[2]^b[2]) + bits.OnesCount64(a[3]^b[3])
}

// MatchConfig tunes descriptor matching.
type MatchConfig struct {
	// MaxDistance rejects matches with more differing bits.
	MaxDistance int

	// Ratio is the Lowe ratio test bound: the best distance must be below
	// Ratio times the second-best distance.
	Ratio float64
}

// DefaultMatchConfig returns the tuning used by the detector.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{MaxDistance: 64, Ratio: 0.75}
}

// MatchDescriptors matches each query descriptor against the train set by
// brute-force Hamming distance, keeping matches that pass the distance
// bound and the ratio test.
func MatchDescriptors(query, train []Descriptor, cfg MatchConfig) []Match {
	if cfg.MaxDistance <= 0 || cfg.Ratio <= 0 {
		cfg = DefaultMatchConfig()
	}
	matches := make([]Match, 0, len(query))
	for qi, q := range query {
		best, second := descriptorBits + 1, descriptorBits + 1
		bestIdx := -1
		for ti, t := range train {
			d := HammingDistance(q, t)
			if d < best {
				second = best
				best = d
				bestIdx = ti
			} else if d < second {
				second = d
			}
		}
		if bestIdx < 0 || best > cfg.MaxDistance {
			continue
		}
		if float64(best) >= cfg.Ratio*float64(second) {
			continue
		}
		matches = append(matches, Match{Query: qi, Train: bestIdx, Distance: best})
	}
	return matches
}
