package calls

import "math"

// EstimateDurationSeconds derives call length from provider cost when the provider
// did not report a duration: ceil(cost / costPerMinute * 60).
func EstimateDurationSeconds(cost, costPerMinute float64) int {
	if cost <= 0 || costPerMinute <= 0 {
		return 0
	}
	return int(math.Ceil(cost / costPerMinute * 60))
}

// ResolveDuration prefers an explicit duration and falls back to the cost estimate.
// It returns nil when neither is available.
func ResolveDuration(explicitSeconds float64, cost, costPerMinute float64) *int {
	if explicitSeconds > 0 {
		d := int(math.Ceil(explicitSeconds))
		return &d
	}
	if d := EstimateDurationSeconds(cost, costPerMinute); d > 0 {
		return &d
	}
	return nil
}
