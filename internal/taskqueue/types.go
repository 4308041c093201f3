package taskqueue

import (
	"encoding/json"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusClaimed    TaskStatus = "claimed"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCancelled  TaskStatus = "cancelled"
)

const (
	// TaskTypeImport runs a referential import from a URL.
	TaskTypeImport = "import"
	// TaskTypeRecomputeSnapshot recomputes a single project snapshot.
	TaskTypeRecomputeSnapshot = "recompute_snapshot"
	// TaskTypeRecomputeAll recomputes every stored snapshot, optionally
	// filtered by category. Enqueued after a referential import.
	TaskTypeRecomputeAll = "recompute_snapshots"
	// TaskTypeRefreshCatalog forces a catalog cache reload.
	TaskTypeRefreshCatalog = "refresh_catalog"
	// TaskTypeCleanup prunes finished queue rows.
	TaskTypeCleanup = "cleanup"
)

// ImportPayload asks a worker to import the referential file at a URL.
type ImportPayload struct {
	URL string `json:"url"`
}

// RecomputeSnapshotPayload asks a worker to recompute one project snapshot.
type RecomputeSnapshotPayload struct {
	ProjectID string `json:"projectId"`
	Reason    string `json:"reason,omitempty"`
}

// RecomputeAllPayload asks a worker to recompute all stored snapshots.
type RecomputeAllPayload struct {
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// CleanupPayload asks a worker to prune finished queue rows.
type CleanupPayload struct {
	DaysToKeep int `json:"daysToKeep"`
}

type Task struct {
	ID           string          `db:"id"`
	PublicID     string          `db:"public_id"`
	TaskType     string          `db:"task_type"`
	Payload      json.RawMessage `db:"payload"`
	Priority     int             `db:"priority"`
	Status       TaskStatus      `db:"status"`
	ScheduledFor time.Time       `db:"scheduled_for"`
	StartedAt    *time.Time      `db:"started_at"`
	CompletedAt  *time.Time      `db:"completed_at"`
	FailedAt     *time.Time      `db:"failed_at"`
	WorkerID     *string         `db:"worker_id"`
	RetryCount   int             `db:"retry_count"`
	MaxRetries   int             `db:"max_retries"`
	ErrorMessage *string         `db:"error_message"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

type ClaimedTask struct {
	ID       string          `db:"id"`
	TaskType string          `db:"task_type"`
	Payload  json.RawMessage `db:"payload"`
}
