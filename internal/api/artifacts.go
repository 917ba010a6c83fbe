package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/PayLens/internal/store"
)

type ArtifactsHandler struct {
	store store.Store
}

func NewArtifactsHandler(s store.Store) *ArtifactsHandler {
	return &ArtifactsHandler{store: s}
}

func (h *ArtifactsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter store.ArtifactFilter
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if s := r.URL.Query().Get(key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid "+key)
				return
			}
			*dst = n
		}
	}

	artifacts, err := h.store.ListArtifacts(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if artifacts == nil {
		artifacts = []*store.Artifact{}
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (h *ArtifactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *ArtifactsHandler) Content(w http.ResponseWriter, r *http.Request) {
	a, ok := h.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(a.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(a.Content)
}

func (h *ArtifactsHandler) lookup(w http.ResponseWriter, r *http.Request) (*store.Artifact, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid artifact id")
		return nil, false
	}
	a, err := h.store.GetArtifact(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "artifact not found")
		return nil, false
	}
	return a, true
}
