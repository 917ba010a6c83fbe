// Package search is an in-process Backend: depth-first branch and bound
// over bounded integer variables with interval propagation and an
// objective cut. It is sized for the small models the reconciler builds
// (a few dozen binaries) and stops on the time limit with the best
// assignment found so far.
package search

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MikeSquared-Agency/PayLens/internal/solver"
)

const (
	// checkEvery is how many nodes are expanded between clock checks.
	checkEvery = 256
	// maxSplitDepth caps how many leading binaries are fixed to build
	// subproblems for parallel workers.
	maxSplitDepth = 10
)

type Engine struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Engine {
	return &Engine{logger: logger}
}

func (e *Engine) Solve(ctx context.Context, m *solver.Model, p solver.Params) (*solver.Solution, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		e.logger.Warn("rejecting model", "error", err)
		return &solver.Solution{Status: solver.StatusModelInvalid, WallTime: time.Since(start)}, nil
	}

	var deadline time.Time
	if p.TimeLimit > 0 {
		deadline = start.Add(p.TimeLimit)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	rows := normalize(m)
	order := branchOrder(m)
	inc := &incumbent{}
	var stopped atomic.Bool

	expired := func() bool { return deadlinePassed(ctx, deadline) }

	root := newDomain(m.Vars)
	switch propagate(root, rows, m.Objective, 0, false, expired) {
	case interrupted:
		stopped.Store(true)
	case consistent:
		subs := split(root, order, p.Workers)
		e.run(ctx, subs, &searcher{
			rows:     rows,
			obj:      m.Objective,
			objCoef:  objectiveCoefs(m),
			order:    order,
			inc:      inc,
			ctx:      ctx,
			deadline: deadline,
			stopped:  &stopped,
		}, p.Workers)
	}

	sol := &solver.Solution{WallTime: time.Since(start), TimedOut: stopped.Load()}
	switch {
	case inc.found && !sol.TimedOut:
		sol.Status = solver.StatusOptimal
	case inc.found:
		sol.Status = solver.StatusFeasible
	case !sol.TimedOut:
		sol.Status = solver.StatusInfeasible
	default:
		sol.Status = solver.StatusUnknown
	}
	if inc.found {
		sol.Values = inc.values
		sol.Objective = inc.obj
	}
	return sol, nil
}

// run hands subproblems to workers. Subproblem indices double as the
// tie-break between equal objectives, so the answer of a search that runs
// to completion does not depend on scheduling.
func (e *Engine) run(ctx context.Context, subs []domain, proto *searcher, workers int) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(subs) {
		workers = len(subs)
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range next {
				s := *proto
				s.idx = idx
				s.dfs(subs[idx])
			}
		}()
	}
	for i := range subs {
		if proto.stopped.Load() {
			break
		}
		next <- i
	}
	close(next)
	wg.Wait()
}

// branchOrder puts binaries first in declaration order, then the rest.
func branchOrder(m *solver.Model) []solver.VarID {
	order := make([]solver.VarID, 0, len(m.Vars))
	for i, v := range m.Vars {
		if v.IsBinary() {
			order = append(order, solver.VarID(i))
		}
	}
	for i, v := range m.Vars {
		if !v.IsBinary() {
			order = append(order, solver.VarID(i))
		}
	}
	return order
}

func objectiveCoefs(m *solver.Model) []int64 {
	coefs := make([]int64, len(m.Vars))
	for _, t := range m.Objective {
		coefs[t.Var] += t.Coef
	}
	return coefs
}

// split fixes the first free binaries of the root so there are a few
// subproblems per worker. Subproblems are listed in the order a sequential
// search would visit them (value 1 before 0).
func split(root domain, order []solver.VarID, workers int) []domain {
	if workers <= 1 {
		return []domain{root}
	}
	var lead []solver.VarID
	for _, v := range order {
		if len(lead) == maxSplitDepth || 1<<len(lead) >= workers*4 {
			break
		}
		if root.lo[v] == 0 && root.hi[v] == 1 {
			lead = append(lead, v)
		}
	}
	if len(lead) == 0 {
		return []domain{root}
	}

	k := len(lead)
	subs := make([]domain, 0, 1<<k)
	for i := 0; i < 1<<k; i++ {
		d := root.clone()
		for j, v := range lead {
			bit := int64((i >> (k - 1 - j)) & 1)
			d.lo[v], d.hi[v] = 1-bit, 1-bit
		}
		subs = append(subs, d)
	}
	return subs
}

type incumbent struct {
	mu     sync.Mutex
	found  bool
	obj    int64
	idx    int
	values []int64
}

// limit is the largest objective subproblem idx may still report. Equal
// objectives are only accepted from subproblems earlier in visit order.
func (in *incumbent) limit(idx int) (int64, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.found {
		return 0, false
	}
	if in.idx <= idx {
		return in.obj - 1, true
	}
	return in.obj, true
}

func (in *incumbent) offer(idx int, obj int64, values []int64) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.found && (obj > in.obj || (obj == in.obj && idx >= in.idx)) {
		return
	}
	in.found = true
	in.obj = obj
	in.idx = idx
	in.values = values
}

type searcher struct {
	rows     []row
	obj      []solver.Term
	objCoef  []int64
	order    []solver.VarID
	inc      *incumbent
	idx      int
	ctx      context.Context
	deadline time.Time
	stopped  *atomic.Bool
	nodes    int
}

func (s *searcher) expired() bool {
	return deadlinePassed(s.ctx, s.deadline)
}

func deadlinePassed(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return !deadline.IsZero() && time.Now().After(deadline)
}

func (s *searcher) dfs(d domain) {
	if s.stopped.Load() {
		return
	}
	if s.nodes%checkEvery == 0 && s.expired() {
		s.stopped.Store(true)
		return
	}
	s.nodes++

	limit, cut := s.inc.limit(s.idx)
	switch propagate(d, s.rows, s.obj, limit, cut, s.expired) {
	case conflict:
		return
	case interrupted:
		s.stopped.Store(true)
		return
	}

	v, ok := s.pick(d)
	if !ok {
		values := append([]int64(nil), d.lo...)
		s.inc.offer(s.idx, solver.Eval(s.obj, values), values)
		return
	}
	for _, b := range s.branches(d, v) {
		child := d.clone()
		child.lo[v], child.hi[v] = b[0], b[1]
		s.dfs(child)
		if s.stopped.Load() {
			return
		}
	}
}

func (s *searcher) pick(d domain) (solver.VarID, bool) {
	for _, v := range s.order {
		if !d.fixed(v) {
			return v, true
		}
	}
	return 0, false
}

// branches lists child bounds for v. Binaries try 1 first. Integers take
// the bound the objective prefers first, then the remaining range.
func (s *searcher) branches(d domain, v solver.VarID) [][2]int64 {
	lo, hi := d.lo[v], d.hi[v]
	if lo == 0 && hi == 1 {
		return [][2]int64{{1, 1}, {0, 0}}
	}
	if s.objCoef[v] >= 0 {
		return [][2]int64{{lo, lo}, {lo + 1, hi}}
	}
	return [][2]int64{{hi, hi}, {lo, hi - 1}}
}
