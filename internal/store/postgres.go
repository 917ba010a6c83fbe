package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const artifactColumns = `artifact_id, filename, format, content_type, row_count, suggested_set,
	octet_length(content), created_at`

func (s *PostgresStore) PutArtifact(ctx context.Context, a *Artifact) error {
	if a.SuggestedSet == nil {
		a.SuggestedSet = []string{}
	}
	a.Size = len(a.Content)
	return s.pool.QueryRow(ctx, `
		INSERT INTO paylens_artifacts (filename, format, content_type, row_count, suggested_set, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING artifact_id, created_at`,
		a.Filename, a.Format, a.ContentType, a.RowCount, a.SuggestedSet, a.Content,
	).Scan(&a.ID, &a.CreatedAt)
}

func (s *PostgresStore) GetArtifact(ctx context.Context, id uuid.UUID) (*Artifact, error) {
	a := &Artifact{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+artifactColumns+`, content
		FROM paylens_artifacts WHERE artifact_id = $1`, id,
	).Scan(&a.ID, &a.Filename, &a.Format, &a.ContentType, &a.RowCount, &a.SuggestedSet,
		&a.Size, &a.CreatedAt, &a.Content)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, filter ArtifactFilter) ([]*Artifact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+artifactColumns+`
		FROM paylens_artifacts
		ORDER BY created_at DESC, artifact_id
		LIMIT $1 OFFSET $2`, filter.limit(), filter.offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		a := &Artifact{}
		if err := rows.Scan(&a.ID, &a.Filename, &a.Format, &a.ContentType, &a.RowCount,
			&a.SuggestedSet, &a.Size, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
