package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/MikeSquared-Agency/PayLens/internal/solver"
)

type Status string

const (
	StatusOptimal      Status = "OPTIMAL"
	StatusFeasible     Status = "FEASIBLE"
	StatusInfeasible   Status = "INFEASIBLE"
	StatusUnknown      Status = "UNKNOWN"
	StatusModelInvalid Status = "MODEL_INVALID"
	StatusSkip         Status = "SKIP"
)

func statusFrom(s solver.Status) Status {
	switch s {
	case solver.StatusOptimal:
		return StatusOptimal
	case solver.StatusFeasible:
		return StatusFeasible
	case solver.StatusInfeasible:
		return StatusInfeasible
	case solver.StatusModelInvalid:
		return StatusModelInvalid
	default:
		return StatusUnknown
	}
}

// Solved reports whether the status carries a usable selection.
func (s Status) Solved() bool {
	return s == StatusOptimal || s == StatusFeasible
}

type PayCodeValue struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

// Values is an ordered code -> amount mapping. It reads and writes as a JSON
// object and keeps the order the codes appeared in, which is the tie-break
// order for candidate pruning.
type Values []PayCodeValue

func (v *Values) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*v = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("values must be an object of pay code to amount")
	}

	out := Values{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		code, _ := keyTok.(string)
		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("amount for %q: %w", code, err)
		}
		amount, err := num.Float64()
		if err != nil {
			return fmt.Errorf("amount for %q: %w", code, err)
		}
		out = append(out, PayCodeValue{Code: code, Amount: amount})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*v = out
	return nil
}

func (v Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pv := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pv.Code)
		if err != nil {
			return nil, err
		}
		amount, err := json.Marshal(pv.Amount)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(amount)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Validate rejects empty or repeated codes and non-finite amounts.
func (v Values) Validate() error {
	seen := make(map[string]bool, len(v))
	for _, pv := range v {
		if pv.Code == "" {
			return inputErrorf("pay code must not be empty")
		}
		if seen[pv.Code] {
			return inputErrorf("duplicate pay code %q", pv.Code)
		}
		seen[pv.Code] = true
		if math.IsNaN(pv.Amount) || math.IsInf(pv.Amount, 0) {
			return inputErrorf("amount for %q is not a finite number", pv.Code)
		}
	}
	return nil
}

// Candidate is a pay code that survived filtering and pruning, with its
// integer-scaled amount.
type Candidate struct {
	Code   string
	Amount float64
	Scaled int64
}

type SolveResult struct {
	Status        Status   `json:"status"`
	Selected      []string `json:"selected"`
	SelectedSum   float64  `json:"selected_sum"`
	Target        float64  `json:"target"`
	AbsError      float64  `json:"abs_error"`
	ScaledError   int64    `json:"scaled_error"`
	SolveTime     float64  `json:"solve_time"`
	NumCandidates int      `json:"num_candidates"`
	TimedOut      bool     `json:"timed_out,omitempty"`
}

// Retryable reports whether a larger time budget could improve the answer.
func (r SolveResult) Retryable() bool {
	return r.Status == StatusUnknown || r.TimedOut
}

type Verdict struct {
	PredictedContribution *float64 `json:"predicted_contribution"`
	WithinTolerance       bool     `json:"within_tolerance"`
}

// RowRequest is a single payroll row to explain.
type RowRequest struct {
	Values             Values  `json:"values"`
	ContributionAmount float64 `json:"contribution_amount"`
	ContributionRate   float64 `json:"contribution_rate"`
}

type RowResult struct {
	EmployeeID            string      `json:"employee_id,omitempty"`
	Period                string      `json:"period,omitempty"`
	EligibleEst           *float64    `json:"eligible_est"`
	Result                SolveResult `json:"result"`
	PredictedContribution *float64    `json:"predicted_contribution"`
	WithinTolerance       bool        `json:"within_tolerance"`
	Retryable             bool        `json:"retryable"`
	Error                 string      `json:"error,omitempty"`
}

// Options control one solve. Zero values are replaced by DefaultOptions.
type Options struct {
	Scale          int64
	MaxCandidates  int
	TimeLimit      time.Duration
	PreferFewer    bool
	TolerancePct   float64
	ToleranceFloor float64
	SearchWorkers  int
}

// MaxCandidatesLimit leaves room for the sum and diff variables.
const MaxCandidatesLimit = solver.MaxVars - 2

func DefaultOptions() Options {
	return Options{
		Scale:          100,
		MaxCandidates:  50,
		TimeLimit:      5 * time.Second,
		PreferFewer:    true,
		TolerancePct:   0.01,
		ToleranceFloor: DefaultToleranceFloor,
		SearchWorkers:  1,
	}
}

func (o Options) Validate() error {
	if o.Scale <= 0 {
		return inputErrorf("scale must be positive, got %d", o.Scale)
	}
	if o.MaxCandidates <= 0 {
		return inputErrorf("max_candidates must be positive, got %d", o.MaxCandidates)
	}
	if o.MaxCandidates > MaxCandidatesLimit {
		return inputErrorf("max_candidates must be at most %d, got %d", MaxCandidatesLimit, o.MaxCandidates)
	}
	if o.TimeLimit <= 0 {
		return inputErrorf("time limit must be positive, got %v", o.TimeLimit)
	}
	if o.TolerancePct < 0 || math.IsNaN(o.TolerancePct) {
		return inputErrorf("tolerance_pct must not be negative")
	}
	if o.ToleranceFloor < 0 || math.IsNaN(o.ToleranceFloor) {
		return inputErrorf("tolerance floor must not be negative")
	}
	return nil
}
