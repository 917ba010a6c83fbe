// Package service ties the reconciler to persistence, events and metrics.
// Both the HTTP API and the CLI drive reconciliation through it.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/PayLens/internal/config"
	"github.com/MikeSquared-Agency/PayLens/internal/dataset"
	"github.com/MikeSquared-Agency/PayLens/internal/hermes"
	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
	"github.com/MikeSquared-Agency/PayLens/internal/store"
)

// ErrPersist wraps artifact storage failures. The artifact is the
// deliverable of a persisted batch, so these fail the batch.
var ErrPersist = errors.New("persist artifact")

// Recorder receives batch-level counters.
type Recorder interface {
	BatchCompleted()
	ArtifactStored(format string)
}

type nopRecorder struct{}

func (nopRecorder) BatchCompleted()       {}
func (nopRecorder) ArtifactStored(string) {}

type Service struct {
	rec      *reconcile.Reconciler
	store    store.Store
	hermes   hermes.Client
	recorder Recorder
	cfg      *config.Config
	logger   *slog.Logger
}

// New builds a Service. h and rec may be nil.
func New(r *reconcile.Reconciler, s store.Store, h hermes.Client, rec Recorder, cfg *config.Config, logger *slog.Logger) *Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Service{rec: r, store: s, hermes: h, recorder: rec, cfg: cfg, logger: logger}
}

func (s *Service) Store() store.Store {
	return s.store
}

// SolveOptions are the configured single-row options.
func (s *Service) SolveOptions() reconcile.Options {
	rc := s.cfg.Reconcile
	return reconcile.Options{
		Scale:          rc.Scale,
		MaxCandidates:  rc.MaxCandidates,
		TimeLimit:      s.cfg.DefaultTimeLimit(),
		PreferFewer:    rc.PreferFewer,
		TolerancePct:   rc.TolerancePct,
		ToleranceFloor: rc.ToleranceFloor,
		SearchWorkers:  s.cfg.Solver.Workers,
	}
}

// BatchOptions are the configured batch options. Rows already run in
// parallel, so each solve gets a share of the search workers.
func (s *Service) BatchOptions() reconcile.BatchOptions {
	opts := s.SolveOptions()
	opts.MaxCandidates = s.cfg.Reconcile.BatchMaxCandidates
	opts.TimeLimit = s.cfg.BatchTimeLimit()
	workers := s.cfg.Reconcile.BatchWorkers
	opts.SearchWorkers = searchShare(s.cfg.Solver.Workers, workers)
	return reconcile.BatchOptions{
		Options:          opts,
		SummaryThreshold: s.cfg.Reconcile.SummaryThreshold,
		Workers:          workers,
	}
}

func searchShare(total, rowWorkers int) int {
	if rowWorkers <= 1 {
		return total
	}
	if share := total / rowWorkers; share > 1 {
		return share
	}
	return 1
}

// Solve explains one payroll row. Rows that stop on the time limit are
// announced so callers can retry with a larger budget.
func (s *Service) Solve(ctx context.Context, req reconcile.RowRequest, opts reconcile.Options) (*reconcile.RowResult, error) {
	res, err := s.rec.SolveRow(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	if res.Retryable && s.hermes != nil {
		if err := s.hermes.Publish(hermes.SubjectSolveTimeout, hermes.SolveTimeoutEvent{
			Status:        string(res.Result.Status),
			NumCandidates: res.Result.NumCandidates,
			TimeLimitMs:   opts.TimeLimit.Milliseconds(),
			Timestamp:     time.Now().UTC(),
		}); err != nil {
			s.logger.Warn("failed to publish solve timeout", "error", err)
		}
	}
	return res, nil
}

type BatchRequest struct {
	Rows     []reconcile.BatchRow
	Options  reconcile.BatchOptions
	Format   string
	Filename string
	Persist  bool
}

type BatchResult struct {
	ID       uuid.UUID
	Report   *reconcile.Report
	Artifact *store.Artifact
	// MaxWallTime bounds how long the batch could have taken: every
	// worker's share of rows at the full time limit.
	MaxWallTime time.Duration
}

// RunBatch reconciles every row, then optionally stores the rendered
// report as an artifact.
func (s *Service) RunBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	format := req.Format
	if format == "" {
		format = s.cfg.Reconcile.ArtifactFormat
	}
	if !dataset.ValidFormat(format) {
		return nil, &reconcile.InputError{Msg: fmt.Sprintf("unsupported artifact format %q", format)}
	}

	start := time.Now()
	report, err := s.rec.RunBatch(ctx, req.Rows, req.Options)
	if err != nil {
		return nil, err
	}
	out := &BatchResult{
		ID:          uuid.New(),
		Report:      report,
		MaxWallTime: MaxWallTime(len(req.Rows), req.Options.Workers, req.Options.TimeLimit),
	}

	if req.Persist {
		a, err := s.persist(ctx, report, format, req.Filename, out.ID)
		if err != nil {
			return nil, err
		}
		out.Artifact = a
	}

	s.recorder.BatchCompleted()
	elapsed := time.Since(start)
	s.logger.Info("batch completed",
		"batch_id", out.ID,
		"rows", report.TotalRows,
		"skipped", report.SkippedRows,
		"suggested", strings.Join(report.Suggested, ","),
		"duration_ms", elapsed.Milliseconds(),
	)
	if s.hermes != nil {
		ev := hermes.BatchCompletedEvent{
			BatchID:     out.ID.String(),
			TotalRows:   report.TotalRows,
			SkippedRows: report.SkippedRows,
			Suggested:   report.Suggested,
			Threshold:   report.Threshold,
			DurationMs:  elapsed.Milliseconds(),
			Timestamp:   time.Now().UTC(),
		}
		if out.Artifact != nil {
			ev.ArtifactID = out.Artifact.ID.String()
		}
		if err := s.hermes.Publish(hermes.SubjectBatchCompleted(out.ID.String()), ev); err != nil {
			s.logger.Warn("failed to publish batch completion", "batch_id", out.ID, "error", err)
		}
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, report *reconcile.Report, format, filename string, batchID uuid.UUID) (*store.Artifact, error) {
	var buf bytes.Buffer
	if err := dataset.Render(&buf, report, format); err != nil {
		return nil, fmt.Errorf("render artifact: %w", err)
	}
	if filename == "" {
		filename = "paylens-" + batchID.String()[:8]
	}
	if !strings.HasSuffix(filename, dataset.Extension(format)) {
		filename += dataset.Extension(format)
	}

	a := &store.Artifact{
		Filename:     filename,
		Format:       format,
		ContentType:  dataset.ContentType(format),
		RowCount:     report.TotalRows,
		SuggestedSet: report.Suggested,
		Content:      buf.Bytes(),
	}
	if err := s.store.PutArtifact(ctx, a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	a.Size = len(a.Content)
	s.recorder.ArtifactStored(format)

	if s.hermes != nil {
		if err := s.hermes.Publish(hermes.SubjectArtifactStored(a.ID.String()), hermes.ArtifactStoredEvent{
			ArtifactID: a.ID.String(),
			Filename:   a.Filename,
			Format:     a.Format,
			RowCount:   a.RowCount,
			Size:       a.Size,
			Timestamp:  a.CreatedAt,
		}); err != nil {
			s.logger.Warn("failed to publish artifact stored", "artifact_id", a.ID, "error", err)
		}
	}
	return a, nil
}

// MaxWallTime is ceil(rows / workers) · limit.
func MaxWallTime(rows, workers int, limit time.Duration) time.Duration {
	if workers < 1 {
		workers = 1
	}
	rounds := math.Ceil(float64(rows) / float64(workers))
	return time.Duration(rounds) * limit
}
