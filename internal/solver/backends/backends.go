// Package backends picks the solver.Backend named in configuration.
package backends

import (
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/PayLens/internal/config"
	"github.com/MikeSquared-Agency/PayLens/internal/solver"
	"github.com/MikeSquared-Agency/PayLens/internal/solver/remote"
	"github.com/MikeSquared-Agency/PayLens/internal/solver/search"
)

const (
	Search = "search"
	Remote = "remote"
)

func New(cfg config.SolverConfig, logger *slog.Logger) (solver.Backend, error) {
	switch cfg.Backend {
	case "", Search:
		return search.New(logger), nil
	case Remote:
		if cfg.RemoteURL == "" {
			return nil, fmt.Errorf("solver backend %q requires remote_url", Remote)
		}
		return remote.NewHTTPClient(cfg.RemoteURL, cfg.RemoteToken), nil
	default:
		return nil, fmt.Errorf("unknown solver backend %q", cfg.Backend)
	}
}
