package reconcile

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// BatchRow is one payroll row of a dataset. Problem is set by the reader
// when the row could not be parsed; such rows are reported as SKIP.
type BatchRow struct {
	EmployeeID         string  `json:"employee_id"`
	Period             string  `json:"period,omitempty"`
	Values             Values  `json:"values"`
	ContributionAmount float64 `json:"contribution_amount"`
	ContributionRate   float64 `json:"contribution_rate"`
	Problem            string  `json:"-"`
}

type BatchOptions struct {
	Options
	SummaryThreshold float64
	// Workers is the number of rows solved concurrently.
	Workers int
}

func (o BatchOptions) Validate() error {
	if err := o.Options.Validate(); err != nil {
		return err
	}
	if o.SummaryThreshold < 0 || o.SummaryThreshold > 1 {
		return inputErrorf("summary_threshold must be within [0, 1], got %v", o.SummaryThreshold)
	}
	if o.Workers < 0 {
		return inputErrorf("workers must not be negative")
	}
	return nil
}

type SelectionFrequency struct {
	Code     string  `json:"code"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

type Report struct {
	Rows        []RowResult          `json:"rows"`
	Summary     []SelectionFrequency `json:"summary"`
	Suggested   []string             `json:"suggested"`
	TotalRows   int                  `json:"total_rows"`
	SkippedRows int                  `json:"skipped_rows"`
	Threshold   float64              `json:"threshold"`
}

const (
	outcomeSolved  = "solved"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

// RunBatch solves every row independently on opts.Workers goroutines.
// Row results keep input order. Selection counts are kept per worker and
// summed at the end. A row that fails becomes a SKIP row with Error set;
// only cancellation of ctx aborts the batch.
func (r *Reconciler) RunBatch(ctx context.Context, rows []BatchRow, opts BatchOptions) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers == 0 {
		workers = 1
	}
	if workers > len(rows) && len(rows) > 0 {
		workers = len(rows)
	}

	results := make([]RowResult, len(rows))
	partials := make([]map[string]int, workers)
	next := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		counts := make(map[string]int)
		partials[w] = counts
		g.Go(func() error {
			for i := range next {
				results[i] = r.processRow(gctx, rows[i], opts.Options)
				for _, code := range results[i].Result.Selected {
					counts[code]++
				}
			}
			return nil
		})
	}

feed:
	for i := range rows {
		select {
		case next <- i:
		case <-gctx.Done():
			break feed
		}
	}
	close(next)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}

	counts := make(map[string]int)
	for _, p := range partials {
		for code, n := range p {
			counts[code] += n
		}
	}

	report := &Report{
		Rows:      results,
		TotalRows: len(rows),
		Threshold: opts.SummaryThreshold,
	}
	for _, row := range results {
		if row.Result.Status == StatusSkip {
			report.SkippedRows++
		}
	}
	report.Summary = Summarize(counts, len(rows))
	report.Suggested = SuggestedSet(report.Summary, opts.SummaryThreshold)
	return report, nil
}

// processRow never fails: errors and panics become SKIP rows.
func (r *Reconciler) processRow(ctx context.Context, row BatchRow, opts Options) (out RowResult) {
	out = RowResult{EmployeeID: row.EmployeeID, Period: row.Period}
	skip := func(reason string) RowResult {
		out.Result = SolveResult{Status: StatusSkip, Selected: []string{}}
		out.Error = reason
		return out
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("row panicked", "employee_id", row.EmployeeID, "panic", p)
			r.observer.ObserveBatchRow(outcomeError)
			out = skip(fmt.Sprintf("internal error: %v", p))
		}
	}()

	if row.Problem != "" {
		r.observer.ObserveBatchRow(outcomeError)
		return skip(row.Problem)
	}
	if err := checkFinite(row.ContributionAmount, row.ContributionRate); err != nil {
		r.observer.ObserveBatchRow(outcomeError)
		return skip(err.Error())
	}

	res, err := r.solveRow(ctx, RowRequest{
		Values:             row.Values,
		ContributionAmount: row.ContributionAmount,
		ContributionRate:   row.ContributionRate,
	}, opts)
	if err != nil {
		r.logger.Warn("row failed", "employee_id", row.EmployeeID, "error", err)
		r.observer.ObserveBatchRow(outcomeError)
		return skip(err.Error())
	}

	res.EmployeeID, res.Period = row.EmployeeID, row.Period
	if res.Result.Status == StatusSkip {
		r.observer.ObserveBatchRow(outcomeSkipped)
	} else {
		r.observer.ObserveBatchRow(outcomeSolved)
	}
	return *res
}

// Summarize converts selection counts into fractions of totalRows, most
// frequent first, ties by code.
func Summarize(counts map[string]int, totalRows int) []SelectionFrequency {
	summary := make([]SelectionFrequency, 0, len(counts))
	if totalRows == 0 {
		return summary
	}
	for code, n := range counts {
		summary = append(summary, SelectionFrequency{
			Code:     code,
			Count:    n,
			Fraction: float64(n) / float64(totalRows),
		})
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Count != summary[j].Count {
			return summary[i].Count > summary[j].Count
		}
		return summary[i].Code < summary[j].Code
	})
	return summary
}

// SuggestedSet lists codes whose fraction meets threshold, sorted by code.
func SuggestedSet(summary []SelectionFrequency, threshold float64) []string {
	suggested := []string{}
	for _, s := range summary {
		if s.Fraction >= threshold {
			suggested = append(suggested, s.Code)
		}
	}
	sort.Strings(suggested)
	return suggested
}
