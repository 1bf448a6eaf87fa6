package app

// halveOrDouble steps a dispatch size through powers of two. Zero means
// automatic; stepping from it starts at auto. Halving 1 returns to
// automatic. A positive limit caps the result.
func halveOrDouble(cur int, up bool, auto, limit int) int {
	capped := func(n int) int {
		if limit > 0 {
			return min(n, limit)
		}
		return n
	}
	if cur <= 0 {
		if up {
			return capped(max(auto, 1))
		}
		return capped(max(auto/2, 1))
	}
	if up {
		return capped(cur * 2)
	}
	if cur == 1 {
		return 0
	}
	return cur / 2
}
