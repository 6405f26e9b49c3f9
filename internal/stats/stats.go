// Package stats holds the numeric kernel for salary distributions. Everything
// here is pure and deterministic; degenerate inputs yield documented zero
// values instead of errors.
package stats

import "sort"

// Median returns the middle element of values, or the mean of the two central
// elements for even length. Empty input returns 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Percentile interpolates linearly between the two bracketing ranks of an
// already-sorted slice, using index = p/100 * (n-1). Out-of-range p clamps to
// the extreme values. Empty input returns 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// ConfidenceTier maps a sample size to a coarse 60-95 confidence score.
// The thresholds form a step function; the tier never decreases as n grows.
func ConfidenceTier(sampleSize int) int {
	switch {
	case sampleSize >= 1000:
		return 95
	case sampleSize >= 500:
		return 88
	case sampleSize >= 200:
		return 82
	case sampleSize >= 100:
		return 75
	case sampleSize >= 50:
		return 68
	default:
		return 60
	}
}

// Distribution bundles the percentile summary the salary service exposes.
type Distribution struct {
	P10            float64 `json:"p10"`
	P25            float64 `json:"p25"`
	P50            float64 `json:"p50"`
	P75            float64 `json:"p75"`
	P90            float64 `json:"p90"`
	SampleSize     int     `json:"sample_size"`
	ConfidenceTier int     `json:"confidence_tier"`
}

// Describe computes the full percentile summary over an unsorted sample.
func Describe(values []float64) Distribution {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return Distribution{
		P10:            Percentile(sorted, 10),
		P25:            Percentile(sorted, 25),
		P50:            Percentile(sorted, 50),
		P75:            Percentile(sorted, 75),
		P90:            Percentile(sorted, 90),
		SampleSize:     len(values),
		ConfidenceTier: ConfidenceTier(len(values)),
	}
}
