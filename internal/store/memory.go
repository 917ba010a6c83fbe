package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps artifacts in process memory. It is used when no
// database is configured and in tests.
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[uuid.UUID]*Artifact
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{artifacts: make(map[uuid.UUID]*Artifact), now: time.Now}
}

func (s *MemoryStore) PutArtifact(_ context.Context, a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = s.now().UTC()
	a.Size = len(a.Content)
	if a.SuggestedSet == nil {
		a.SuggestedSet = []string{}
	}
	s.artifacts[a.ID] = copyArtifact(a, true)
	return nil
}

func (s *MemoryStore) GetArtifact(_ context.Context, id uuid.UUID) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	if !ok {
		return nil, nil
	}
	return copyArtifact(a, true), nil
}

func (s *MemoryStore) ListArtifacts(_ context.Context, filter ArtifactFilter) ([]*Artifact, error) {
	s.mu.RLock()
	all := make([]*Artifact, 0, len(s.artifacts))
	for _, a := range s.artifacts {
		all = append(all, a)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	start := filter.offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.limit()
	if end > len(all) {
		end = len(all)
	}
	out := make([]*Artifact, 0, end-start)
	for _, a := range all[start:end] {
		out = append(out, copyArtifact(a, false))
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

func copyArtifact(a *Artifact, withContent bool) *Artifact {
	c := *a
	c.SuggestedSet = append([]string{}, a.SuggestedSet...)
	if withContent {
		c.Content = append([]byte(nil), a.Content...)
	} else {
		c.Content = nil
	}
	return &c
}
