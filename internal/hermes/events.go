package hermes

import "time"

type BatchCompletedEvent struct {
	BatchID     string    `json:"batch_id"`
	TotalRows   int       `json:"total_rows"`
	SkippedRows int       `json:"skipped_rows"`
	Suggested   []string  `json:"suggested"`
	Threshold   float64   `json:"threshold"`
	ArtifactID  string    `json:"artifact_id,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

type ArtifactStoredEvent struct {
	ArtifactID string    `json:"artifact_id"`
	Filename   string    `json:"filename"`
	Format     string    `json:"format"`
	RowCount   int       `json:"row_count"`
	Size       int       `json:"size"`
	Timestamp  time.Time `json:"timestamp"`
}

// SolveTimeoutEvent is published when a single-row solve hits its time
// limit, so callers can retry with a larger budget.
type SolveTimeoutEvent struct {
	Status        string    `json:"status"`
	NumCandidates int       `json:"num_candidates"`
	TimeLimitMs   int64     `json:"time_limit_ms"`
	Timestamp     time.Time `json:"timestamp"`
}
