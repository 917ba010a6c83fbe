package api

import (
	"encoding/json"
	"net/http"

	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
	"github.com/MikeSquared-Agency/PayLens/internal/service"
)

type SolveHandler struct {
	svc      *service.Service
	maxBytes int64
}

func NewSolveHandler(svc *service.Service, maxBytes int64) *SolveHandler {
	return &SolveHandler{svc: svc, maxBytes: maxBytes}
}

type solveRequest struct {
	reconcile.RowRequest
	optionOverrides
}

func (h *SolveHandler) Solve(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	var req solveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, &reconcile.InputError{Msg: "invalid request body", Err: err})
		return
	}

	opts := h.svc.SolveOptions()
	if err := req.optionOverrides.apply(&opts); err != nil {
		writeErr(w, err)
		return
	}

	res, err := h.svc.Solve(r.Context(), req.RowRequest, opts)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
