// Package solver defines the seam between the reconciliation core and an
// optimization engine: a linear integer Model goes in, a Status and an
// assignment come out. Anything that honours Backend can be swapped in
// without touching formulation or interpretation.
package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
	StatusModelInvalid
)

var statusNames = map[Status]string{
	StatusUnknown:      "UNKNOWN",
	StatusOptimal:      "OPTIMAL",
	StatusFeasible:     "FEASIBLE",
	StatusInfeasible:   "INFEASIBLE",
	StatusModelInvalid: "MODEL_INVALID",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// HasAssignment reports whether a Solution with this status carries values.
func (s Status) HasAssignment() bool {
	return s == StatusOptimal || s == StatusFeasible
}

func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown solver status %q", s)
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	st, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Params bounds a single Solve call.
type Params struct {
	TimeLimit time.Duration
	// Workers is the number of parallel search workers a backend may use.
	Workers int
}

type Solution struct {
	Status    Status
	Values    []int64
	Objective int64
	// TimedOut is set when the search stopped on the time limit or a
	// cancelled context rather than by exhausting the search space.
	TimedOut bool
	WallTime time.Duration
}

// Value returns the assigned value of v, or 0 when there is no assignment.
func (s *Solution) Value(v VarID) int64 {
	if s == nil || int(v) >= len(s.Values) {
		return 0
	}
	return s.Values[v]
}

// Backend solves one model per call and keeps no state between calls.
// Infeasible and model-invalid outcomes are reported through Status; the
// returned error is reserved for failures to reach or run the engine.
type Backend interface {
	Solve(ctx context.Context, m *Model, p Params) (*Solution, error)
}
