// Package remote is a Backend that ships models to an optimization service
// over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/PayLens/internal/solver"
)

// transportSlack is added to the solve time limit for the HTTP round trip.
const transportSlack = 10 * time.Second

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// SolvePath is where a model solve service accepts SolveRequests.
const SolvePath = "/api/v1/models/solve"

// SolveRequest is the wire form of one Solve call.
type SolveRequest struct {
	Model       *solver.Model `json:"model"`
	TimeLimitMs int64         `json:"time_limit_ms"`
	Workers     int           `json:"workers,omitempty"`
}

type SolveResponse struct {
	Status     solver.Status `json:"status"`
	Values     []int64       `json:"values,omitempty"`
	Objective  int64         `json:"objective"`
	TimedOut   bool          `json:"timed_out"`
	WallTimeMs int64         `json:"wall_time_ms"`
}

// NewSolveResponse converts a Solution to its wire form.
func NewSolveResponse(sol *solver.Solution) SolveResponse {
	return SolveResponse{
		Status:     sol.Status,
		Values:     sol.Values,
		Objective:  sol.Objective,
		TimedOut:   sol.TimedOut,
		WallTimeMs: sol.WallTime.Milliseconds(),
	}
}

func (c *HTTPClient) Solve(ctx context.Context, m *solver.Model, p solver.Params) (*solver.Solution, error) {
	payload, err := json.Marshal(SolveRequest{
		Model:       m,
		TimeLimitMs: p.TimeLimit.Milliseconds(),
		Workers:     p.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}

	if p.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.TimeLimit+transportSlack)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SolvePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solver request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("solver: %d %s", resp.StatusCode, string(body))
	}

	var out SolveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode solver response: %w", err)
	}
	if out.Status.HasAssignment() && len(out.Values) != len(m.Vars) {
		return nil, fmt.Errorf("solver returned %d values for %d vars", len(out.Values), len(m.Vars))
	}

	wall := time.Duration(out.WallTimeMs) * time.Millisecond
	if wall == 0 {
		wall = time.Since(start)
	}
	return &solver.Solution{
		Status:    out.Status,
		Values:    out.Values,
		Objective: out.Objective,
		TimedOut:  out.TimedOut,
		WallTime:  wall,
	}, nil
}
