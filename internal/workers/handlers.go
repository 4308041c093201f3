package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/primelio/cee-service/internal/catalog"
	"github.com/primelio/cee-service/internal/compute"
	"github.com/primelio/cee-service/internal/importer"
	"github.com/primelio/cee-service/internal/jobs"
	"github.com/primelio/cee-service/internal/taskqueue"
	"github.com/primelio/cee-service/internal/types"
)

// HandlerDeps carries the services the task handlers dispatch to.
type HandlerDeps struct {
	Queue     *taskqueue.TaskQueue
	Compute   *compute.Service
	Cache     *catalog.Cache
	Importer  *importer.Importer
	Recompute jobs.RecomputeOptions
	Cleanup   jobs.CleanupConfig
}

// RegisterHandlers binds every known task type on the worker.
func RegisterHandlers(w *Worker, deps HandlerDeps) {
	w.RegisterHandler(taskqueue.TaskTypeImport, ImportHandler(deps.Importer))
	w.RegisterHandler(taskqueue.TaskTypeRecomputeSnapshot, RecomputeSnapshotHandler(deps.Compute, deps.Recompute))
	w.RegisterHandler(taskqueue.TaskTypeRecomputeAll, RecomputeAllHandler(deps.Compute, deps.Recompute))
	w.RegisterHandler(taskqueue.TaskTypeRefreshCatalog, RefreshCatalogHandler(deps.Cache))
	w.RegisterHandler(taskqueue.TaskTypeCleanup, CleanupHandler(deps.Queue, deps.Cleanup))
}

// ImportHandler runs a referential import from the URL in the payload.
func ImportHandler(imp *importer.Importer) HandlerFunc {
	return func(ctx context.Context, payload []byte) (any, error) {
		var p taskqueue.ImportPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("bad import payload: %w", err)
		}
		if p.URL == "" {
			return nil, fmt.Errorf("import payload has no url")
		}

		result, err := imp.Run(ctx, importer.RunInput{
			Source: types.SourceWorker,
			URL:    p.URL,
		})
		if err != nil {
			return nil, err
		}
		if result.Status == types.StatusFailed {
			return result, fmt.Errorf("import run %s failed: %s", result.PublicID, result.FailureReason)
		}
		return result, nil
	}
}

// RecomputeSnapshotHandler replays one project's stored compute document.
func RecomputeSnapshotHandler(svc *compute.Service, opts jobs.RecomputeOptions) HandlerFunc {
	return func(ctx context.Context, payload []byte) (any, error) {
		var p taskqueue.RecomputeSnapshotPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("bad recompute payload: %w", err)
		}
		if p.ProjectID == "" {
			return nil, fmt.Errorf("recompute payload has no projectId")
		}
		return jobs.RecomputeProject(ctx, svc, p.ProjectID, opts)
	}
}

// RecomputeAllHandler replays every stored snapshot, optionally one category.
func RecomputeAllHandler(svc *compute.Service, opts jobs.RecomputeOptions) HandlerFunc {
	return func(ctx context.Context, payload []byte) (any, error) {
		var p taskqueue.RecomputeAllPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("bad batch recompute payload: %w", err)
		}
		return jobs.RecomputeAll(ctx, svc, p.Category, opts)
	}
}

// RefreshCatalogHandler forces a referential cache reload.
func RefreshCatalogHandler(cache *catalog.Cache) HandlerFunc {
	return func(ctx context.Context, _ []byte) (any, error) {
		if err := cache.Refresh(ctx); err != nil {
			return nil, err
		}
		freshness := cache.GetFreshness()
		return freshness, nil
	}
}

// CleanupHandler prunes finished queue tasks and old import runs. A positive
// daysToKeep in the payload overrides the configured task retention.
func CleanupHandler(queue *taskqueue.TaskQueue, cfg jobs.CleanupConfig) HandlerFunc {
	return func(ctx context.Context, payload []byte) (any, error) {
		var p taskqueue.CleanupPayload
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, fmt.Errorf("bad cleanup payload: %w", err)
			}
		}
		if cfg.TaskRetentionDays <= 0 || cfg.ImportRunRetentionDays <= 0 {
			defaults := jobs.DefaultCleanupConfig()
			if cfg.TaskRetentionDays <= 0 {
				cfg.TaskRetentionDays = defaults.TaskRetentionDays
			}
			if cfg.ImportRunRetentionDays <= 0 {
				cfg.ImportRunRetentionDays = defaults.ImportRunRetentionDays
			}
		}
		if p.DaysToKeep > 0 {
			cfg.TaskRetentionDays = p.DaysToKeep
		}
		return jobs.RunCleanup(ctx, queue, cfg)
	}
}
