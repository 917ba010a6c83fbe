package reconcile

import "math"

// DefaultToleranceFloor is one currency unit. Relative tolerances on tiny
// contributions never go below it.
const DefaultToleranceFloor = 1.0

// Classify compares the contribution implied by the selection with the
// observed one. Only solved rows get a prediction.
func Classify(res SolveResult, amount, rate, tolerancePct, floor float64) Verdict {
	if !res.Status.Solved() {
		return Verdict{}
	}
	predicted := res.SelectedSum * rate
	allowed := math.Max(tolerancePct*math.Abs(amount), floor)
	return Verdict{
		PredictedContribution: &predicted,
		WithinTolerance:       math.Abs(predicted-amount) <= allowed,
	}
}
