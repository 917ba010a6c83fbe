package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MikeSquared-Agency/PayLens/internal/solver"
	"github.com/MikeSquared-Agency/PayLens/internal/solver/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func batchOptions(workers int) BatchOptions {
	return BatchOptions{Options: testOptions(), SummaryThreshold: 0.5, Workers: workers}
}

// otRows returns four rows where OT belongs to the base in exactly two.
func otRows() []BatchRow {
	values := vals("REG", 1000, "OT", 200)
	return []BatchRow{
		{EmployeeID: "E1", Values: values, ContributionAmount: 300, ContributionRate: 0.25},
		{EmployeeID: "E2", Values: values, ContributionAmount: 250, ContributionRate: 0.25},
		{EmployeeID: "E3", Values: values, ContributionAmount: 300, ContributionRate: 0.25},
		{EmployeeID: "E4", Values: values, ContributionAmount: 250, ContributionRate: 0.25},
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	solves   int
	outcomes map[string]int
}

func (o *recordingObserver) ObserveSolve(string, time.Duration, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.solves++
}

func (o *recordingObserver) ObserveBatchRow(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}

func TestRunBatchSuggestsCodeAtThreshold(t *testing.T) {
	obs := &recordingObserver{}
	r := New(search.New(discardLogger()), obs, discardLogger())

	report, err := r.RunBatch(context.Background(), otRows(), batchOptions(2))
	require.NoError(t, err)

	require.Len(t, report.Rows, 4)
	for i, id := range []string{"E1", "E2", "E3", "E4"} {
		assert.Equal(t, id, report.Rows[i].EmployeeID)
	}
	assert.Equal(t, []string{"REG", "OT"}, report.Rows[0].Result.Selected)
	assert.Equal(t, []string{"REG"}, report.Rows[1].Result.Selected)

	assert.Equal(t, []SelectionFrequency{
		{Code: "REG", Count: 4, Fraction: 1},
		{Code: "OT", Count: 2, Fraction: 0.5},
	}, report.Summary)
	assert.Equal(t, []string{"OT", "REG"}, report.Suggested)
	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 0, report.SkippedRows)

	assert.Equal(t, 4, obs.solves)
	assert.Equal(t, 4, obs.outcomes[outcomeSolved])
}

func TestRunBatchSkipsRows(t *testing.T) {
	rows := otRows()
	rows[1].ContributionRate = 0
	rows[2].ContributionAmount = 0
	rows[3].Problem = `contribution_amount: invalid number "n/a"`

	r := newTestReconciler()
	report, err := r.RunBatch(context.Background(), rows, batchOptions(3))
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, report.Rows[0].Result.Status)
	for _, i := range []int{1, 2, 3} {
		assert.Equal(t, StatusSkip, report.Rows[i].Result.Status, "row %d", i)
		assert.Empty(t, report.Rows[i].Result.Selected)
		assert.Nil(t, report.Rows[i].PredictedContribution)
	}
	assert.Contains(t, report.Rows[3].Error, "invalid number")
	assert.Equal(t, 3, report.SkippedRows)

	// Skipped rows still count toward the denominator.
	require.Len(t, report.Summary, 2)
	assert.Equal(t, 0.25, report.Summary[0].Fraction)
	assert.Empty(t, report.Suggested)
}

type panicBackend struct{}

func (panicBackend) Solve(context.Context, *solver.Model, solver.Params) (*solver.Solution, error) {
	panic("solver exploded")
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	tests := []struct {
		name    string
		backend solver.Backend
		errText string
	}{
		{"backend error", failingBackend{err: errors.New("solver: 503 Service Unavailable")}, "503"},
		{"backend panic", panicBackend{}, "solver exploded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			r := New(tt.backend, obs, discardLogger())

			report, err := r.RunBatch(context.Background(), otRows(), batchOptions(2))
			require.NoError(t, err)
			require.Len(t, report.Rows, 4)
			for _, row := range report.Rows {
				assert.Equal(t, StatusSkip, row.Result.Status)
				assert.Contains(t, row.Error, tt.errText)
			}
			assert.Equal(t, 4, report.SkippedRows)
			assert.Empty(t, report.Summary)
			assert.Equal(t, 4, obs.outcomes[outcomeError])
		})
	}
}

func TestRunBatchWorkerCountDoesNotChangeReport(t *testing.T) {
	r := newTestReconciler()
	var rows []BatchRow
	for i := 0; i < 6; i++ {
		rows = append(rows, otRows()...)
	}

	seq, err := r.RunBatch(context.Background(), rows, batchOptions(1))
	require.NoError(t, err)
	par, err := r.RunBatch(context.Background(), rows, batchOptions(8))
	require.NoError(t, err)

	assert.Equal(t, seq.Summary, par.Summary)
	assert.Equal(t, seq.Suggested, par.Suggested)
	for i := range seq.Rows {
		assert.Equal(t, seq.Rows[i].Result.Selected, par.Rows[i].Result.Selected)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestReconciler().RunBatch(ctx, otRows(), batchOptions(2))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunBatchEmpty(t *testing.T) {
	report, err := newTestReconciler().RunBatch(context.Background(), nil, batchOptions(4))
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Empty(t, report.Summary)
	assert.Empty(t, report.Suggested)
}

func TestRunBatchRejectsThreshold(t *testing.T) {
	opts := batchOptions(1)
	opts.SummaryThreshold = 1.5
	_, err := newTestReconciler().RunBatch(context.Background(), otRows(), opts)
	require.Error(t, err)
	assert.True(t, IsInputError(err))
}

func TestSuggestedSetThresholdMonotonic(t *testing.T) {
	summary := Summarize(map[string]int{"REG": 10, "OT": 6, "HOL": 3, "BONUS": 1}, 10)

	prev := SuggestedSet(summary, 0)
	assert.Equal(t, []string{"BONUS", "HOL", "OT", "REG"}, prev)
	for _, th := range []float64{0.1, 0.3, 0.5, 0.6, 0.61, 1} {
		cur := SuggestedSet(summary, th)
		assert.Subset(t, prev, cur, "threshold %v", th)
		prev = cur
	}
	assert.Equal(t, []string{"REG"}, prev)
}

func TestSummarizeOrdering(t *testing.T) {
	summary := Summarize(map[string]int{"B": 2, "A": 2, "C": 5}, 5)
	assert.Equal(t, []SelectionFrequency{
		{Code: "C", Count: 5, Fraction: 1},
		{Code: "A", Count: 2, Fraction: 0.4},
		{Code: "B", Count: 2, Fraction: 0.4},
	}, summary)
}
