package compute

import "sort"

type registration struct {
	rank     int
	platform Platform
}

var platforms []registration

// Register adds a platform. Platforms are enumerated by ascending rank, then
// by registration order, so hardware drivers should use a lower rank than
// the host fallback.
func Register(p Platform, rank int) {
	if p == nil {
		return
	}
	platforms = append(platforms, registration{rank: rank, platform: p})
	sort.SliceStable(platforms, func(i, j int) bool {
		return platforms[i].rank < platforms[j].rank
	})
}

// Platforms lists the registered platforms in enumeration order.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	for i, r := range platforms {
		out[i] = r.platform
	}
	return out
}
