package reconcile

import "github.com/MikeSquared-Agency/PayLens/internal/solver"

// Interpret turns a backend solution into a SolveResult. Sums and errors are
// computed from the integer-scaled amounts and divided by scale once, so
// repeated evaluation is exact to one scale unit. Without an assignment the
// selection is empty and the error is measured against it.
func Interpret(f *Formulation, cands []Candidate, target float64, scale int64, sol *solver.Solution) SolveResult {
	res := SolveResult{
		Status:        statusFrom(sol.Status),
		Selected:      []string{},
		Target:        target,
		NumCandidates: len(cands),
		SolveTime:     sol.WallTime.Seconds(),
		TimedOut:      sol.TimedOut,
	}

	var sumScaled int64
	if sol.Status.HasAssignment() {
		for i, c := range cands {
			if sol.Value(f.Choices[i]) == 1 {
				res.Selected = append(res.Selected, c.Code)
				sumScaled += c.Scaled
			}
		}
	}

	res.ScaledError = abs64(sumScaled - f.ScaledTarget)
	res.SelectedSum = float64(sumScaled) / float64(scale)
	res.AbsError = float64(res.ScaledError) / float64(scale)
	return res
}

// emptyResult is the answer when no candidate survives preprocessing: the
// backend is not consulted.
func emptyResult(target float64, scale int64) SolveResult {
	scaledErr := abs64(ScaleAmount(target, scale))
	return SolveResult{
		Status:      StatusInfeasible,
		Selected:    []string{},
		Target:      target,
		AbsError:    float64(scaledErr) / float64(scale),
		ScaledError: scaledErr,
	}
}
