package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveSolve(t *testing.T) {
	m := New()
	m.ObserveSolve("OPTIMAL", 20*time.Millisecond, 5)
	m.ObserveSolve("OPTIMAL", 30*time.Millisecond, 7)
	m.ObserveSolve("UNKNOWN", 2*time.Second, 20)

	if got := testutil.ToFloat64(m.solves.WithLabelValues("OPTIMAL")); got != 2 {
		t.Errorf("expected 2 optimal solves, got %v", got)
	}
	if got := testutil.ToFloat64(m.solves.WithLabelValues("UNKNOWN")); got != 1 {
		t.Errorf("expected 1 unknown solve, got %v", got)
	}
}

func TestBatchAndArtifactCounters(t *testing.T) {
	m := New()
	m.ObserveBatchRow("solved")
	m.ObserveBatchRow("skipped")
	m.ObserveBatchRow("solved")
	m.BatchCompleted()
	m.ArtifactStored("csv")

	if got := testutil.ToFloat64(m.batchRows.WithLabelValues("solved")); got != 2 {
		t.Errorf("expected 2 solved rows, got %v", got)
	}
	if got := testutil.ToFloat64(m.batches); got != 1 {
		t.Errorf("expected 1 batch, got %v", got)
	}
	if got := testutil.ToFloat64(m.artifacts.WithLabelValues("csv")); got != 1 {
		t.Errorf("expected 1 csv artifact, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveSolve("FEASIBLE", time.Second, 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, name := range []string{"paylens_solves_total", "paylens_solve_duration_seconds", "paylens_candidates", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}
