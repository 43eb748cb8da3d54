package formulas

// HerfindahlIndex is the sum of squared shares of the given counts.
func HerfindahlIndex(counts []int) float64 {
	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}
	if total == 0 {
		return 0
	}

	var hhi float64
	for _, c := range counts {
		if c <= 0 {
			continue
		}
		share := float64(c) / float64(total)
		hhi += share * share
	}
	return hhi
}

// Diversification is 1 - HHI: 0 for a single bucket, (n-1)/n for n equal buckets.
func Diversification(counts []int) float64 {
	if nonZero(counts) < 2 {
		return 0
	}
	return Clamp(1-HerfindahlIndex(counts), 0, 1)
}

// NormalizedDiversification rescales Diversification by its maximum for the
// bucket count, so n equal buckets score 1.
func NormalizedDiversification(counts []int) float64 {
	n := nonZero(counts)
	if n < 2 {
		return 0
	}
	maxDiversity := 1 - 1/float64(n)
	return Clamp((1-HerfindahlIndex(counts))/maxDiversity, 0, 1)
}

func nonZero(counts []int) int {
	n := 0
	for _, c := range counts {
		if c > 0 {
			n++
		}
	}
	return n
}
