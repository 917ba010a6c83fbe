package solver

import (
	"errors"
	"fmt"
	"math"
)

// VarID indexes a variable inside a Model.
type VarID int

// Var is a bounded integer decision variable. Binary variables are integer
// variables with bounds [0, 1].
type Var struct {
	Name string `json:"name"`
	Lo   int64  `json:"lo"`
	Hi   int64  `json:"hi"`
}

// IsBinary reports whether v can only take the values 0 and 1.
func (v Var) IsBinary() bool { return v.Lo == 0 && v.Hi == 1 }

// Term is one coefficient·variable product of a linear expression.
type Term struct {
	Var  VarID `json:"var"`
	Coef int64 `json:"coef"`
}

type Sense string

const (
	LessEq    Sense = "<="
	GreaterEq Sense = ">="
	Equal     Sense = "=="
)

// Constraint is Σ terms <sense> RHS.
type Constraint struct {
	Terms []Term `json:"terms"`
	Sense Sense  `json:"sense"`
	RHS   int64  `json:"rhs"`
}

// Model is a pure-integer linear model with a minimisation objective. It is
// the only thing a Backend ever sees.
type Model struct {
	Vars        []Var        `json:"vars"`
	Constraints []Constraint `json:"constraints"`
	Objective   []Term       `json:"objective"`
}

// magnitudeLimit keeps every row activity comfortably inside int64.
const magnitudeLimit = float64(math.MaxInt64 / 4)

var ErrInvalidModel = errors.New("invalid model")

// MaxVars caps model size. Reconciliation models use max_candidates+2.
const MaxVars = 4096

func NewModel() *Model {
	return &Model{}
}

func (m *Model) NewBoolVar(name string) VarID {
	return m.NewIntVar(0, 1, name)
}

func (m *Model) NewIntVar(lo, hi int64, name string) VarID {
	m.Vars = append(m.Vars, Var{Name: name, Lo: lo, Hi: hi})
	return VarID(len(m.Vars) - 1)
}

func (m *Model) Add(terms []Term, sense Sense, rhs int64) {
	m.Constraints = append(m.Constraints, Constraint{Terms: terms, Sense: sense, RHS: rhs})
}

func (m *Model) Minimize(terms []Term) {
	m.Objective = terms
}

// Validate checks model size, variable references, bounds and that no
// linear expression can overflow int64 over the variable domains.
func (m *Model) Validate() error {
	if len(m.Vars) > MaxVars {
		return fmt.Errorf("%w: %d vars exceeds %d", ErrInvalidModel, len(m.Vars), MaxVars)
	}
	for i, v := range m.Vars {
		if v.Lo > v.Hi {
			return fmt.Errorf("%w: var %d (%s) has empty domain [%d, %d]", ErrInvalidModel, i, v.Name, v.Lo, v.Hi)
		}
	}
	for i, c := range m.Constraints {
		switch c.Sense {
		case LessEq, GreaterEq, Equal:
		default:
			return fmt.Errorf("%w: constraint %d has unknown sense %q", ErrInvalidModel, i, c.Sense)
		}
		if err := m.checkExpr(c.Terms); err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		if math.Abs(float64(c.RHS)) > magnitudeLimit {
			return fmt.Errorf("%w: constraint %d rhs out of range", ErrInvalidModel, i)
		}
	}
	if err := m.checkExpr(m.Objective); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	return nil
}

func (m *Model) checkExpr(terms []Term) error {
	var span float64
	for _, t := range terms {
		if t.Var < 0 || int(t.Var) >= len(m.Vars) {
			return fmt.Errorf("%w: unknown var %d", ErrInvalidModel, t.Var)
		}
		v := m.Vars[t.Var]
		bound := math.Max(math.Abs(float64(v.Lo)), math.Abs(float64(v.Hi)))
		span += math.Abs(float64(t.Coef)) * bound
	}
	if span > magnitudeLimit {
		return fmt.Errorf("%w: expression magnitude %.3g exceeds int64 headroom", ErrInvalidModel, span)
	}
	return nil
}

// Eval returns the value of a linear expression under an assignment.
func Eval(terms []Term, values []int64) int64 {
	var total int64
	for _, t := range terms {
		total += t.Coef * values[t.Var]
	}
	return total
}
