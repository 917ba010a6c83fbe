// Package metrics exposes Prometheus instrumentation for solves, batches and
// artifacts on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	solveDuration *prometheus.HistogramVec
	solves        *prometheus.CounterVec
	candidates    prometheus.Histogram
	batchRows     *prometheus.CounterVec
	batches       prometheus.Counter
	artifacts     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paylens_solve_duration_seconds",
			Help:    "Backend wall time per subset-selection solve.",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2, 5, 10, 30},
		}, []string{"status"}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paylens_solves_total",
			Help: "Subset-selection solves by result status.",
		}, []string{"status"}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paylens_candidates",
			Help:    "Candidate pay codes per solve after pruning.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 30, 50, 100},
		}),
		batchRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paylens_batch_rows_total",
			Help: "Batch rows processed by outcome.",
		}, []string{"outcome"}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paylens_batches_total",
			Help: "Batches completed.",
		}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paylens_artifacts_stored_total",
			Help: "Report artifacts persisted by format.",
		}, []string{"format"}),
	}
	m.registry.MustRegister(
		m.solveDuration, m.solves, m.candidates, m.batchRows, m.batches, m.artifacts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveSolve(status string, elapsed time.Duration, numCandidates int) {
	m.solves.WithLabelValues(status).Inc()
	m.solveDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.candidates.Observe(float64(numCandidates))
}

func (m *Metrics) ObserveBatchRow(outcome string) {
	m.batchRows.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BatchCompleted() {
	m.batches.Inc()
}

func (m *Metrics) ArtifactStored(format string) {
	m.artifacts.WithLabelValues(format).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
