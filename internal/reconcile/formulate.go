package reconcile

import (
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/PayLens/internal/solver"
)

// minLarge is the floor of the deviation weight in the scalarised
// objective. It must exceed any possible number of selected codes.
const minLarge int64 = 1_000_000

// maxObjective bounds LARGE·diff so the model stays inside int64.
const maxObjective = float64(math.MaxInt64 / 8)

// Formulation is the subset-selection model plus the handles needed to
// read an assignment back.
type Formulation struct {
	Model        *solver.Model
	Choices      []solver.VarID
	Sum          solver.VarID
	Diff         solver.VarID
	ScaledTarget int64
	Large        int64
}

// LargeMultiplier weights deviation above cardinality: one scaled unit of
// deviation always costs more than selecting every candidate.
func LargeMultiplier(scaledTarget int64) int64 {
	if scaledTarget+1 > minLarge {
		return scaledTarget + 1
	}
	return minLarge
}

// Formulate builds
//
//	x_i ∈ {0,1}
//	sum  = Σ scaled_i·x_i
//	diff >= sum − target,  diff >= target − sum
//	minimise LARGE·diff + Σ x_i   (or diff alone when preferFewer is off)
//
// The sum bounds are [Σ negative amounts, Σ positive amounts], which is
// [0, Σ amounts] for the usual all-positive row.
func Formulate(cands []Candidate, scaledTarget int64, preferFewer bool) (*Formulation, error) {
	m := solver.NewModel()
	f := &Formulation{Model: m, ScaledTarget: scaledTarget}

	var sumLo, sumHi int64
	sumTerms := make([]solver.Term, 0, len(cands)+1)
	for i, c := range cands {
		x := m.NewBoolVar(fmt.Sprintf("x_%d", i))
		f.Choices = append(f.Choices, x)
		sumTerms = append(sumTerms, solver.Term{Var: x, Coef: c.Scaled})
		if c.Scaled < 0 {
			sumLo += c.Scaled
		} else {
			sumHi += c.Scaled
		}
	}

	span := float64(sumHi) - float64(sumLo) + math.Abs(float64(scaledTarget))
	if span > maxObjective {
		return nil, fmt.Errorf("%w: amounts span %.3g scaled units", ErrModelTooLarge, span)
	}

	f.Sum = m.NewIntVar(sumLo, sumHi, "sum_selected")
	m.Add(append(sumTerms, solver.Term{Var: f.Sum, Coef: -1}), solver.Equal, 0)

	diffHi := abs64(sumHi - scaledTarget)
	if d := abs64(scaledTarget - sumLo); d > diffHi {
		diffHi = d
	}
	f.Diff = m.NewIntVar(0, diffHi, "diff")
	// sum − target <= diff  and  target − sum <= diff
	m.Add([]solver.Term{{Var: f.Sum, Coef: 1}, {Var: f.Diff, Coef: -1}}, solver.LessEq, scaledTarget)
	m.Add([]solver.Term{{Var: f.Sum, Coef: -1}, {Var: f.Diff, Coef: -1}}, solver.LessEq, -scaledTarget)

	if !preferFewer {
		m.Minimize([]solver.Term{{Var: f.Diff, Coef: 1}})
		return f, nil
	}

	f.Large = LargeMultiplier(scaledTarget)
	if float64(f.Large)*float64(diffHi) > maxObjective {
		return nil, fmt.Errorf("%w: deviation weight %d over %d units", ErrModelTooLarge, f.Large, diffHi)
	}
	obj := make([]solver.Term, 0, len(f.Choices)+1)
	obj = append(obj, solver.Term{Var: f.Diff, Coef: f.Large})
	for _, x := range f.Choices {
		obj = append(obj, solver.Term{Var: x, Coef: 1})
	}
	m.Minimize(obj)
	return f, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
