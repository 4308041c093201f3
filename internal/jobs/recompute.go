package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/primelio/cee-service/internal/compute"
	"github.com/primelio/cee-service/internal/database"
)

// RecomputeOptions tunes snapshot replay.
type RecomputeOptions struct {
	// Tolerance suppresses rewrites when the recomputed figures match the
	// stored ones within this absolute threshold.
	Tolerance float64
	// Concurrency bounds the batch fan-out.
	Concurrency int64
}

// DefaultRecomputeOptions returns the defaults applied when the caller
// passes a zero value.
func DefaultRecomputeOptions() RecomputeOptions {
	return RecomputeOptions{
		Tolerance:   0.005,
		Concurrency: 4,
	}
}

// RecomputeResult is the outcome of replaying one project.
type RecomputeResult struct {
	ProjectID string `json:"projectId"`
	Changed   bool   `json:"changed"`
	// Skipped means the stored row predates input capture and has no
	// compute document to replay.
	Skipped bool `json:"skipped,omitempty"`
}

// RecomputeStats aggregates a batch run.
type RecomputeStats struct {
	Total     int `json:"total"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// RecomputeProject replays a project's stored compute document against the
// current referential and upserts the resulting snapshot. The stored input
// is left untouched; only the figures move. The recompute timestamp is
// stamped even when the figures come out identical.
func RecomputeProject(ctx context.Context, svc *compute.Service, projectID string, opts RecomputeOptions) (*RecomputeResult, error) {
	row, err := database.GetProjectSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("no snapshot stored for project %s", projectID)
	}
	if row.Input == nil {
		return &RecomputeResult{ProjectID: projectID, Skipped: true}, nil
	}

	var req compute.Request
	if err := json.Unmarshal([]byte(*row.Input), &req); err != nil {
		return nil, fmt.Errorf("stored compute document for project %s is unreadable: %w", projectID, err)
	}
	req.ProjectID = projectID

	resp, err := svc.Compute(&req)
	if err != nil {
		return nil, fmt.Errorf("recompute project %s: %w", projectID, err)
	}

	next, err := database.NewProjectSnapshotRow(projectID, &resp.Totals, resp.Snapshot)
	if err != nil {
		return nil, err
	}
	changed, err := database.UpsertProjectSnapshot(ctx, next, opts.Tolerance)
	if err != nil {
		return nil, err
	}
	if err := database.TouchSnapshotRecompute(ctx, projectID); err != nil {
		return nil, err
	}
	return &RecomputeResult{ProjectID: projectID, Changed: changed}, nil
}

// RecomputeAll replays every stored snapshot, optionally filtered to one
// category, with bounded concurrency. Per-project failures are counted and
// logged, never fatal; the batch runs to the end unless the context is
// cancelled.
func RecomputeAll(ctx context.Context, svc *compute.Service, category string, opts RecomputeOptions) (*RecomputeStats, error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultRecomputeOptions().Concurrency
	}
	logger := log.With().Str("component", "recompute").Logger()

	ids, err := database.ListSnapshotProjectIDs(ctx, category)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		stats = RecomputeStats{Total: len(ids)}
	)
	sem := semaphore.NewWeighted(opts.Concurrency)

	for _, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return &stats, err
		}
		wg.Add(1)
		go func(projectID string) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := RecomputeProject(ctx, svc, projectID, opts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				logger.Error().Err(err).Str("project_id", projectID).Msg("Snapshot recompute failed")
			case res.Skipped:
				stats.Skipped++
			case res.Changed:
				stats.Changed++
			default:
				stats.Unchanged++
			}
		}(id)
	}
	wg.Wait()

	logger.Info().
		Str("category", category).
		Int("total", stats.Total).
		Int("changed", stats.Changed).
		Int("unchanged", stats.Unchanged).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("Batch recompute finished")
	return &stats, nil
}
