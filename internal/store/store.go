package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Artifact is a rendered batch report. Artifacts are immutable once stored.
type Artifact struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`
	Format       string    `json:"format"`
	ContentType  string    `json:"content_type"`
	RowCount     int       `json:"row_count"`
	SuggestedSet []string  `json:"suggested_set"`
	Size         int       `json:"size"`
	CreatedAt    time.Time `json:"created_at"`

	Content []byte `json:"-"`
}

type ArtifactFilter struct {
	Limit  int
	Offset int
}

// Store persists batch artifacts. Get returns (nil, nil) when the id is
// unknown; List returns the most recent first and never includes Content.
type Store interface {
	PutArtifact(ctx context.Context, a *Artifact) error
	GetArtifact(ctx context.Context, id uuid.UUID) (*Artifact, error)
	ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*Artifact, error)
	Close() error
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (f ArtifactFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}

func (f ArtifactFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}
