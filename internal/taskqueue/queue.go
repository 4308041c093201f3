package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/primelio/cee-service/internal/pkg/cuid2"
)

// TaskQueue is a PostgreSQL-backed work queue. Claiming uses
// FOR UPDATE SKIP LOCKED so concurrent workers never double-claim.
type TaskQueue struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *TaskQueue {
	return &TaskQueue{pool: pool}
}

func (q *TaskQueue) GetPool() *pgxpool.Pool {
	return q.pool
}

type ScheduleTaskInput struct {
	TaskType    string
	Payload     any
	Priority    int
	ScheduledAt *time.Time
	MaxRetries  int
}

// ScheduleTask enqueues a task and returns its row ID.
func (q *TaskQueue) ScheduleTask(ctx context.Context, input ScheduleTaskInput) (string, error) {
	payload, err := json.Marshal(input.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode task payload: %w", err)
	}

	maxRetries := 3
	if input.MaxRetries > 0 {
		maxRetries = input.MaxRetries
	}

	scheduledFor := time.Now()
	if input.ScheduledAt != nil {
		scheduledFor = *input.ScheduledAt
	}

	var id string
	err = q.pool.QueryRow(ctx, `
		INSERT INTO task_queue (public_id, task_type, payload, priority, scheduled_for, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, cuid2.NewTaskID(), input.TaskType, payload, input.Priority, scheduledFor, maxRetries).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to schedule task: %w", err)
	}
	return id, nil
}

type ClaimTasksInput struct {
	WorkerID  string
	TaskTypes []string
	MaxTasks  int
}

// ClaimTasks atomically claims up to MaxTasks due tasks for a worker.
// Higher priority first, then oldest schedule.
func (q *TaskQueue) ClaimTasks(ctx context.Context, input ClaimTasksInput) ([]ClaimedTask, error) {
	rows, err := q.pool.Query(ctx, `
		UPDATE task_queue SET
			status = 'claimed',
			worker_id = $1,
			started_at = NOW(),
			updated_at = NOW()
		WHERE id IN (
			SELECT id FROM task_queue
			WHERE status = 'pending' AND task_type = ANY($2) AND scheduled_for <= NOW()
			ORDER BY priority DESC, scheduled_for
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, task_type, payload
	`, input.WorkerID, input.TaskTypes, input.MaxTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to claim tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]ClaimedTask, 0)
	for rows.Next() {
		var task ClaimedTask
		if err := rows.Scan(&task.ID, &task.TaskType, &task.Payload); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// MarkProcessing transitions a claimed task to processing.
func (q *TaskQueue) MarkProcessing(ctx context.Context, taskID string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE task_queue
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1
	`, taskID)
	return err
}

// CompleteTask finalizes a task, optionally storing a result document.
func (q *TaskQueue) CompleteTask(ctx context.Context, taskID string, result any) error {
	var resultJSON []byte
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode task result: %w", err)
		}
		resultJSON = data
	}

	_, err := q.pool.Exec(ctx, `
		UPDATE task_queue
		SET status = 'completed', completed_at = NOW(), result = $2, updated_at = NOW()
		WHERE id = $1
	`, taskID, resultJSON)
	return err
}

// FailTask records a failure. With shouldRetry the task is rescheduled with
// exponential backoff (5s * 2^n, capped at 5min) until retries run out.
func (q *TaskQueue) FailTask(ctx context.Context, taskID, errorMessage string, shouldRetry bool) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE task_queue SET
			retry_count = retry_count + 1,
			status = CASE WHEN $3 AND retry_count + 1 < max_retries THEN 'pending' ELSE 'failed' END,
			failed_at = CASE WHEN $3 AND retry_count + 1 < max_retries THEN failed_at ELSE NOW() END,
			scheduled_for = CASE WHEN $3 AND retry_count + 1 < max_retries
				THEN NOW() + make_interval(secs => LEAST(300.0, 5.0 * power(2, retry_count)))
				ELSE scheduled_for END,
			error_message = $2,
			updated_at = NOW()
		WHERE id = $1
	`, taskID, errorMessage, shouldRetry)
	return err
}

// CancelTask cancels a task that has not started processing.
func (q *TaskQueue) CancelTask(ctx context.Context, taskID string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE task_queue
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'claimed')
	`, taskID)
	return err
}

// RecoverOrphanedTasks requeues tasks whose worker went away mid-claim.
// Tasks out of retries are failed instead. Returns (recovered, failed).
func (q *TaskQueue) RecoverOrphanedTasks(ctx context.Context, claimTTL time.Duration) (int, int, error) {
	rows, err := q.pool.Query(ctx, `
		UPDATE task_queue SET
			retry_count = retry_count + 1,
			status = CASE WHEN retry_count + 1 < max_retries THEN 'pending' ELSE 'failed' END,
			failed_at = CASE WHEN retry_count + 1 < max_retries THEN failed_at ELSE NOW() END,
			error_message = 'worker lost or claim timed out',
			worker_id = NULL,
			updated_at = NOW()
		WHERE status IN ('claimed', 'processing')
		  AND started_at < NOW() - make_interval(secs => $1)
		RETURNING status
	`, claimTTL.Seconds())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to recover orphaned tasks: %w", err)
	}
	defer rows.Close()

	recovered, failed := 0, 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return recovered, failed, err
		}
		if status == string(StatusPending) {
			recovered++
		} else {
			failed++
		}
	}
	return recovered, failed, rows.Err()
}

// CleanupOldTasks deletes finished tasks older than daysToKeep.
func (q *TaskQueue) CleanupOldTasks(ctx context.Context, daysToKeep int) (int, error) {
	tag, err := q.pool.Exec(ctx, `
		DELETE FROM task_queue
		WHERE status IN ('completed', 'failed', 'cancelled')
		  AND updated_at < NOW() - make_interval(days => $1)
	`, daysToKeep)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old tasks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// GetTask returns a task by row ID or public ID.
func (q *TaskQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	err := q.pool.QueryRow(ctx, `
		SELECT id, public_id, task_type, payload, priority, status,
		       scheduled_for, started_at, completed_at, failed_at,
		       worker_id, retry_count, max_retries, error_message,
		       created_at, updated_at
		FROM task_queue
		WHERE id::text = $1 OR public_id = $1
	`, taskID).Scan(
		&task.ID, &task.PublicID, &task.TaskType, &task.Payload, &task.Priority, &task.Status,
		&task.ScheduledFor, &task.StartedAt, &task.CompletedAt, &task.FailedAt,
		&task.WorkerID, &task.RetryCount, &task.MaxRetries, &task.ErrorMessage,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// CountByStatus returns the queue depth per status, for health reporting.
func (q *TaskQueue) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := q.pool.Query(ctx, `SELECT status, COUNT(*) FROM task_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
