package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"PAYLENS_PORT", "PAYLENS_METRICS_PORT", "PAYLENS_ADMIN_TOKEN",
	"PAYLENS_DATABASE_URL", "PAYLENS_HERMES_URL", "PAYLENS_SOLVER_BACKEND",
	"PAYLENS_SOLVER_URL", "PAYLENS_SOLVER_TOKEN", "PAYLENS_SOLVER_WORKERS",
	"PAYLENS_BATCH_WORKERS", "PAYLENS_SUMMARY_THRESHOLD", "PAYLENS_PREFER_FEWER",
	"PAYLENS_LOG_LEVEL", "PAYLENS_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Solver.Backend != "search" {
		t.Errorf("expected search backend, got %s", cfg.Solver.Backend)
	}
	if cfg.Reconcile.Scale != 100 {
		t.Errorf("expected scale 100, got %d", cfg.Reconcile.Scale)
	}
	if cfg.Reconcile.MaxCandidates != 50 || cfg.Reconcile.BatchMaxCandidates != 20 {
		t.Errorf("expected 50/20 candidates, got %d/%d", cfg.Reconcile.MaxCandidates, cfg.Reconcile.BatchMaxCandidates)
	}
	if cfg.Reconcile.SummaryThreshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.Reconcile.SummaryThreshold)
	}
	if !cfg.Reconcile.PreferFewer {
		t.Error("expected prefer_fewer=true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}

	if cfg.DefaultTimeLimit() != 5*time.Second {
		t.Errorf("expected DefaultTimeLimit 5s, got %v", cfg.DefaultTimeLimit())
	}
	if cfg.BatchTimeLimit() != 2*time.Second {
		t.Errorf("expected BatchTimeLimit 2s, got %v", cfg.BatchTimeLimit())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAYLENS_PORT", "9000")
	t.Setenv("PAYLENS_ADMIN_TOKEN", "secret-token")
	t.Setenv("PAYLENS_DATABASE_URL", "postgres://localhost/paylens_test")
	t.Setenv("PAYLENS_SOLVER_BACKEND", "remote")
	t.Setenv("PAYLENS_SOLVER_URL", "http://solver:8080")
	t.Setenv("PAYLENS_BATCH_WORKERS", "2")
	t.Setenv("PAYLENS_SUMMARY_THRESHOLD", "0.75")
	t.Setenv("PAYLENS_PREFER_FEWER", "false")
	t.Setenv("PAYLENS_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token, got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.URL != "postgres://localhost/paylens_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Solver.Backend != "remote" || cfg.Solver.RemoteURL != "http://solver:8080" {
		t.Errorf("expected remote solver, got %s %s", cfg.Solver.Backend, cfg.Solver.RemoteURL)
	}
	if cfg.Reconcile.BatchWorkers != 2 {
		t.Errorf("expected 2 batch workers, got %d", cfg.Reconcile.BatchWorkers)
	}
	if cfg.Reconcile.SummaryThreshold != 0.75 {
		t.Errorf("expected threshold 0.75, got %v", cfg.Reconcile.SummaryThreshold)
	}
	if cfg.Reconcile.PreferFewer {
		t.Error("expected prefer_fewer disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "paylens.yaml")
	data := []byte(`
server:
  port: 9100
reconcile:
  tolerance_pct: 0.02
  artifact_format: json
solver:
  batch_time_limit_ms: 500
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("expected port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port to survive, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Reconcile.TolerancePct != 0.02 {
		t.Errorf("expected tolerance 0.02, got %v", cfg.Reconcile.TolerancePct)
	}
	if cfg.Reconcile.ArtifactFormat != "json" {
		t.Errorf("expected json artifacts, got %s", cfg.Reconcile.ArtifactFormat)
	}
	if cfg.BatchTimeLimit() != 500*time.Millisecond {
		t.Errorf("expected 500ms batch limit, got %v", cfg.BatchTimeLimit())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
	}{
		{"zero scale", "reconcile:\n  scale: 0\n"},
		{"threshold above one", "reconcile:\n  summary_threshold: 1.5\n"},
		{"unknown format", "reconcile:\n  artifact_format: xlsx\n"},
		{"negative tolerance", "reconcile:\n  tolerance_pct: -0.1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
