package search

import "github.com/MikeSquared-Agency/PayLens/internal/solver"

// row is a constraint normalised to Σ terms <= rhs.
type row struct {
	terms []solver.Term
	rhs   int64
}

func normalize(m *solver.Model) []row {
	rows := make([]row, 0, len(m.Constraints)+1)
	for _, c := range m.Constraints {
		switch c.Sense {
		case solver.LessEq:
			rows = append(rows, row{terms: c.Terms, rhs: c.RHS})
		case solver.GreaterEq:
			rows = append(rows, row{terms: negate(c.Terms), rhs: -c.RHS})
		case solver.Equal:
			rows = append(rows,
				row{terms: c.Terms, rhs: c.RHS},
				row{terms: negate(c.Terms), rhs: -c.RHS},
			)
		}
	}
	return rows
}

func negate(terms []solver.Term) []solver.Term {
	out := make([]solver.Term, len(terms))
	for i, t := range terms {
		out[i] = solver.Term{Var: t.Var, Coef: -t.Coef}
	}
	return out
}

// domain holds the current bounds of every variable.
type domain struct {
	lo []int64
	hi []int64
}

func newDomain(vars []solver.Var) domain {
	d := domain{lo: make([]int64, len(vars)), hi: make([]int64, len(vars))}
	for i, v := range vars {
		d.lo[i] = v.Lo
		d.hi[i] = v.Hi
	}
	return d
}

func (d domain) clone() domain {
	return domain{
		lo: append([]int64(nil), d.lo...),
		hi: append([]int64(nil), d.hi...),
	}
}

func (d domain) fixed(v solver.VarID) bool { return d.lo[v] == d.hi[v] }

type outcome int

const (
	consistent outcome = iota
	conflict
	// interrupted means stop fired before a fixpoint; bounds are valid but
	// may not be tight, and nothing was proven.
	interrupted
)

// propagate tightens bounds against every row, plus the objective cut
// Σ obj <= limit when cut is set, until nothing changes. Two rows can shave
// one unit off each other per pass, so stop is polled between passes.
func propagate(d domain, rows []row, obj []solver.Term, limit int64, cut bool, stop func() bool) outcome {
	for pass := 0; ; pass++ {
		if pass > 0 && stop != nil && stop() {
			return interrupted
		}
		changed := false
		for _, r := range rows {
			ok, ch := tighten(d, r.terms, r.rhs)
			if !ok {
				return conflict
			}
			changed = changed || ch
		}
		if cut {
			ok, ch := tighten(d, obj, limit)
			if !ok {
				return conflict
			}
			changed = changed || ch
		}
		if !changed {
			return consistent
		}
	}
}

// tighten applies interval reasoning to Σ terms <= rhs: each term may use
// at most the slack left by the minimum activity of all other terms.
func tighten(d domain, terms []solver.Term, rhs int64) (ok, changed bool) {
	var minSum int64
	for _, t := range terms {
		minSum += minContrib(d, t)
	}
	if minSum > rhs {
		return false, false
	}
	for _, t := range terms {
		if t.Coef == 0 {
			continue
		}
		slack := rhs - (minSum - minContrib(d, t))
		v := t.Var
		if t.Coef > 0 {
			ub := floorDiv(slack, t.Coef)
			if ub < d.hi[v] {
				if ub < d.lo[v] {
					return false, changed
				}
				d.hi[v] = ub
				changed = true
			}
		} else {
			lb := ceilDiv(slack, t.Coef)
			if lb > d.lo[v] {
				if lb > d.hi[v] {
					return false, changed
				}
				d.lo[v] = lb
				changed = true
			}
		}
	}
	return true, changed
}

func minContrib(d domain, t solver.Term) int64 {
	if t.Coef > 0 {
		return t.Coef * d.lo[t.Var]
	}
	return t.Coef * d.hi[t.Var]
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
