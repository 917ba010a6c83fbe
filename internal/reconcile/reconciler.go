// Package reconcile infers which pay codes formed the base of a benefit
// contribution. Each row is a subset-selection problem handed to a
// solver.Backend; batches aggregate the selections into a frequency
// summary and a suggested set of always-eligible codes.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/MikeSquared-Agency/PayLens/internal/solver"
)

// Observer receives solve and batch outcomes, typically for metrics.
type Observer interface {
	ObserveSolve(status string, elapsed time.Duration, numCandidates int)
	ObserveBatchRow(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveSolve(string, time.Duration, int) {}
func (nopObserver) ObserveBatchRow(string)                  {}

type Reconciler struct {
	backend  solver.Backend
	observer Observer
	logger   *slog.Logger
}

func New(backend solver.Backend, observer Observer, logger *slog.Logger) *Reconciler {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Reconciler{backend: backend, observer: observer, logger: logger}
}

// SolveSubset picks the subset of values whose sum best approximates
// target: smallest deviation first, fewest codes second (when
// opts.PreferFewer). Backend failures are returned as errors; infeasible,
// unknown and invalid outcomes are results.
func (r *Reconciler) SolveSubset(ctx context.Context, values Values, target float64, opts Options) (SolveResult, error) {
	if err := opts.Validate(); err != nil {
		return SolveResult{}, err
	}
	if err := values.Validate(); err != nil {
		return SolveResult{}, err
	}
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return SolveResult{}, inputErrorf("target is not a finite number")
	}

	cands := PrepareCandidates(values, opts.Scale, opts.MaxCandidates)
	if len(cands) == 0 {
		res := emptyResult(target, opts.Scale)
		r.observer.ObserveSolve(string(res.Status), 0, 0)
		return res, nil
	}

	f, err := Formulate(cands, ScaleAmount(target, opts.Scale), opts.PreferFewer)
	if err != nil {
		return SolveResult{}, &InputError{Msg: "build model", Err: err}
	}

	sol, err := r.backend.Solve(ctx, f.Model, solver.Params{
		TimeLimit: opts.TimeLimit,
		Workers:   opts.SearchWorkers,
	})
	if err != nil {
		return SolveResult{}, fmt.Errorf("solve: %w", err)
	}

	res := Interpret(f, cands, target, opts.Scale, sol)
	r.observer.ObserveSolve(string(res.Status), sol.WallTime, len(cands))
	if res.TimedOut {
		r.logger.Debug("solve stopped on time limit", "status", res.Status, "candidates", len(cands), "limit", opts.TimeLimit)
	}
	return res, nil
}

// SolveRow explains a single payroll row. A zero contribution rate is
// rejected before any solve; a zero contribution amount yields SKIP.
func (r *Reconciler) SolveRow(ctx context.Context, req RowRequest, opts Options) (*RowResult, error) {
	if err := checkFinite(req.ContributionAmount, req.ContributionRate); err != nil {
		return nil, err
	}
	if req.ContributionRate == 0 {
		return nil, inputErrorf("contribution_rate must be non-zero")
	}
	return r.solveRow(ctx, req, opts)
}

func (r *Reconciler) solveRow(ctx context.Context, req RowRequest, opts Options) (*RowResult, error) {
	if req.ContributionRate == 0 || req.ContributionAmount == 0 {
		return &RowResult{Result: SolveResult{Status: StatusSkip, Selected: []string{}}}, nil
	}

	target := req.ContributionAmount / req.ContributionRate
	res, err := r.SolveSubset(ctx, req.Values, target, opts)
	if err != nil {
		return nil, err
	}

	verdict := Classify(res, req.ContributionAmount, req.ContributionRate, opts.TolerancePct, opts.ToleranceFloor)
	return &RowResult{
		EligibleEst:           &target,
		Result:                res,
		PredictedContribution: verdict.PredictedContribution,
		WithinTolerance:       verdict.WithinTolerance,
		Retryable:             res.Retryable(),
	}, nil
}

func checkFinite(amount, rate float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return inputErrorf("contribution_amount is not a finite number")
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return inputErrorf("contribution_rate is not a finite number")
	}
	return nil
}
