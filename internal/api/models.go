package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
	"github.com/MikeSquared-Agency/PayLens/internal/solver"
	"github.com/MikeSquared-Agency/PayLens/internal/solver/remote"
)

// ModelsHandler exposes the solver backend itself, so another PayLens
// instance can use this one as its remote backend.
type ModelsHandler struct {
	backend          solver.Backend
	defaultTimeLimit time.Duration
	defaultWorkers   int
	maxBytes         int64
}

func NewModelsHandler(backend solver.Backend, defaultTimeLimit time.Duration, defaultWorkers int, maxBytes int64) *ModelsHandler {
	return &ModelsHandler{
		backend:          backend,
		defaultTimeLimit: defaultTimeLimit,
		defaultWorkers:   defaultWorkers,
		maxBytes:         maxBytes,
	}
}

func (h *ModelsHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	var req remote.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, &reconcile.InputError{Msg: "invalid request body", Err: err})
		return
	}
	if req.Model == nil {
		writeError(w, http.StatusBadRequest, "model required")
		return
	}
	if n := len(req.Model.Vars); n > solver.MaxVars {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("model has %d vars, limit is %d", n, solver.MaxVars))
		return
	}

	limit := h.defaultTimeLimit
	if req.TimeLimitMs > 0 {
		limit = time.Duration(req.TimeLimitMs) * time.Millisecond
	}
	if limit > maxTimeLimitSeconds*time.Second {
		writeError(w, http.StatusBadRequest, "time_limit_ms exceeds 600000")
		return
	}
	workers := h.defaultWorkers
	if req.Workers > 0 && req.Workers < workers {
		workers = req.Workers
	}

	sol, err := h.backend.Solve(r.Context(), req.Model, solver.Params{TimeLimit: limit, Workers: workers})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.NewSolveResponse(sol))
}
