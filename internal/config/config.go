package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Solver    SolverConfig    `yaml:"solver"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
	// MaxUploadMB caps POST request bodies.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type SolverConfig struct {
	Backend            string `yaml:"backend"` // search | remote
	RemoteURL          string `yaml:"remote_url"`
	RemoteToken        string `yaml:"remote_token"`
	Workers            int    `yaml:"workers"`
	DefaultTimeLimitMs int    `yaml:"default_time_limit_ms"`
	BatchTimeLimitMs   int    `yaml:"batch_time_limit_ms"`
}

type ReconcileConfig struct {
	Scale              int64   `yaml:"scale"`
	MaxCandidates      int     `yaml:"max_candidates"`
	BatchMaxCandidates int     `yaml:"batch_max_candidates"`
	TolerancePct       float64 `yaml:"tolerance_pct"`
	ToleranceFloor     float64 `yaml:"tolerance_floor"`
	SummaryThreshold   float64 `yaml:"summary_threshold"`
	PreferFewer        bool    `yaml:"prefer_fewer"`
	BatchWorkers       int     `yaml:"batch_workers"`
	ArtifactFormat     string  `yaml:"artifact_format"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) DefaultTimeLimit() time.Duration {
	return time.Duration(c.Solver.DefaultTimeLimitMs) * time.Millisecond
}

func (c *Config) BatchTimeLimit() time.Duration {
	return time.Duration(c.Solver.BatchTimeLimitMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			MaxUploadMB: 32,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Solver: SolverConfig{
			Backend:            "search",
			Workers:            8,
			DefaultTimeLimitMs: 5000,
			BatchTimeLimitMs:   2000,
		},
		Reconcile: ReconcileConfig{
			Scale:              100,
			MaxCandidates:      50,
			BatchMaxCandidates: 20,
			TolerancePct:       0.01,
			ToleranceFloor:     1.0,
			SummaryThreshold:   0.5,
			PreferFewer:        true,
			BatchWorkers:       4,
			ArtifactFormat:     "csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Reconcile.Scale <= 0 {
		return fmt.Errorf("reconcile.scale must be positive, got %d", c.Reconcile.Scale)
	}
	if c.Reconcile.MaxCandidates <= 0 || c.Reconcile.BatchMaxCandidates <= 0 {
		return fmt.Errorf("reconcile max candidates must be positive")
	}
	if c.Reconcile.TolerancePct < 0 || c.Reconcile.ToleranceFloor < 0 {
		return fmt.Errorf("reconcile tolerance must not be negative")
	}
	if c.Reconcile.SummaryThreshold < 0 || c.Reconcile.SummaryThreshold > 1 {
		return fmt.Errorf("reconcile.summary_threshold must be within [0, 1], got %v", c.Reconcile.SummaryThreshold)
	}
	switch c.Reconcile.ArtifactFormat {
	case "csv", "json":
	default:
		return fmt.Errorf("reconcile.artifact_format must be csv or json, got %q", c.Reconcile.ArtifactFormat)
	}
	if c.Solver.DefaultTimeLimitMs <= 0 || c.Solver.BatchTimeLimitMs <= 0 {
		return fmt.Errorf("solver time limits must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PAYLENS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("PAYLENS_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("PAYLENS_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("PAYLENS_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PAYLENS_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("PAYLENS_SOLVER_BACKEND"); v != "" {
		cfg.Solver.Backend = v
	}
	if v := os.Getenv("PAYLENS_SOLVER_URL"); v != "" {
		cfg.Solver.RemoteURL = v
	}
	if v := os.Getenv("PAYLENS_SOLVER_TOKEN"); v != "" {
		cfg.Solver.RemoteToken = v
	}
	if v := os.Getenv("PAYLENS_SOLVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.Workers = n
		}
	}
	if v := os.Getenv("PAYLENS_BATCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reconcile.BatchWorkers = n
		}
	}
	if v := os.Getenv("PAYLENS_SUMMARY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Reconcile.SummaryThreshold = f
		}
	}
	if v := os.Getenv("PAYLENS_PREFER_FEWER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Reconcile.PreferFewer = b
		}
	}
	if v := os.Getenv("PAYLENS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PAYLENS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
