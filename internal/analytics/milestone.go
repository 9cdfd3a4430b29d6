package analytics

import "math"

// MilestoneStep is the width of one progress milestone in percent.
const MilestoneStep = 10

// Milestone returns the 10%-aligned floor of percentage.
func Milestone(percentage float64) int {
	if math.IsNaN(percentage) || percentage <= 0 {
		return 0
	}
	return int(math.Floor(percentage/MilestoneStep)) * MilestoneStep
}

// MilestoneTracker throttles progress samples to milestone crossings.
//
// The tracker remembers the last observed percentage, not the highest one, so
// seeking backwards lowers it and replaying forward crosses the same milestone
// again. Aggregation tolerates the resulting duplicates.
type MilestoneTracker struct {
	last float64
}

// Observe records percentage and reports the milestone reached when a new
// boundary of at least 10% was crossed since the previous sample.
func (t *MilestoneTracker) Observe(percentage float64) (int, bool) {
	current := Milestone(percentage)
	previous := Milestone(t.last)
	t.last = percentage
	if current > previous && current >= MilestoneStep {
		return current, true
	}
	return 0, false
}

// Last returns the previously observed percentage.
func (t *MilestoneTracker) Last() float64 {
	return t.last
}
