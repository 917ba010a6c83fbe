package api

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/MikeSquared-Agency/PayLens/internal/dataset"
	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
	"github.com/MikeSquared-Agency/PayLens/internal/service"
	"github.com/MikeSquared-Agency/PayLens/internal/store"
)

type BatchHandler struct {
	svc      *service.Service
	maxBytes int64
}

func NewBatchHandler(svc *service.Service, maxBytes int64) *BatchHandler {
	return &BatchHandler{svc: svc, maxBytes: maxBytes}
}

type batchRequest struct {
	Rows []reconcile.BatchRow `json:"rows"`
	batchOverrides
}

type batchResponse struct {
	BatchID string `json:"batch_id"`
	*reconcile.Report
	// MaxWallTimeEstimate is in seconds.
	MaxWallTimeEstimate float64              `json:"max_wall_time_estimate"`
	Artifact            *store.Artifact      `json:"artifact,omitempty"`
	Input               []reconcile.BatchRow `json:"input,omitempty"`
}

// Run accepts either a JSON body with rows and options, or a raw CSV table
// with the options as query parameters.
func (h *BatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	req, err := h.decode(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	opts := h.svc.BatchOptions()
	if err := req.batchOverrides.apply(&opts); err != nil {
		writeErr(w, err)
		return
	}

	out, err := h.svc.RunBatch(r.Context(), service.BatchRequest{
		Rows:     req.Rows,
		Options:  opts,
		Format:   req.Format,
		Filename: req.Filename,
		Persist:  req.persist(),
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	resp := batchResponse{
		BatchID:             out.ID.String(),
		Report:              out.Report,
		MaxWallTimeEstimate: out.MaxWallTime.Seconds(),
		Artifact:            out.Artifact,
	}
	if req.EchoInput {
		resp.Input = req.Rows
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BatchHandler) decode(r *http.Request) (*batchRequest, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errUnsupportedMedia, r.Header.Get("Content-Type"))
	}

	switch mediaType {
	case "application/json":
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, &reconcile.InputError{Msg: "invalid request body", Err: err}
		}
		return &req, nil
	case "text/csv":
		overrides, err := batchOverridesFromQuery(r.URL.Query())
		if err != nil {
			return nil, err
		}
		rows, err := dataset.ReadCSV(r.Body)
		if err != nil {
			return nil, &reconcile.InputError{Msg: "invalid payroll csv", Err: err}
		}
		return &batchRequest{Rows: rows, batchOverrides: overrides}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedMedia, mediaType)
	}
}
