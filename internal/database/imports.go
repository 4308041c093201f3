package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/primelio/cee-service/internal/pkg/cuid2"
	"github.com/primelio/cee-service/internal/types"
)

// CreateImportRun records a new referential import run in pending state.
func CreateImportRun(ctx context.Context, source types.ImportSource, filename, fileType string) (*ImportRun, error) {
	pool := Pool()

	run := &ImportRun{
		ID:        uuid.New().String(),
		PublicID:  cuid2.NewImportID(),
		Source:    string(source),
		Status:    string(types.StatusPending),
		CreatedAt: time.Now(),
	}
	if filename != "" {
		run.Filename = &filename
	}
	if fileType != "" {
		run.FileType = &fileType
	}

	query := `
		INSERT INTO import_runs (id, public_id, source, filename, file_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := pool.Exec(ctx, query,
		run.ID, run.PublicID, run.Source, run.Filename, run.FileType, run.Status, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create import run: %w", err)
	}
	return run, nil
}

// MarkImportRunRunning transitions a run to running and stamps the start.
func MarkImportRunRunning(ctx context.Context, runID string) error {
	pool := Pool()

	_, err := pool.Exec(ctx, `
		UPDATE import_runs SET status = 'running', started_at = NOW() WHERE id = $1
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to mark import run running: %w", err)
	}
	return nil
}

// ImportRunTotals carries the row counters of a finished run.
type ImportRunTotals struct {
	TotalRows     int
	ValidRows     int
	PersistedRows int
	ErrorCount    int
}

// MarkImportRunCompleted finalizes a successful run with its counters.
func MarkImportRunCompleted(ctx context.Context, runID string, totals ImportRunTotals) error {
	pool := Pool()

	_, err := pool.Exec(ctx, `
		UPDATE import_runs
		SET status = 'completed', completed_at = NOW(),
		    total_rows = $2, valid_rows = $3, persisted_rows = $4, error_count = $5
		WHERE id = $1
	`, runID, totals.TotalRows, totals.ValidRows, totals.PersistedRows, totals.ErrorCount)
	if err != nil {
		return fmt.Errorf("failed to mark import run completed: %w", err)
	}
	return nil
}

// MarkImportRunFailed finalizes a failed run with the terminal error.
func MarkImportRunFailed(ctx context.Context, runID string, cause string) error {
	pool := Pool()

	_, err := pool.Exec(ctx, `
		UPDATE import_runs
		SET status = 'failed', completed_at = NOW(), error_message = $2
		WHERE id = $1
	`, runID, cause)
	if err != nil {
		return fmt.Errorf("failed to mark import run failed: %w", err)
	}
	return nil
}

// SetImportRunSource records the source URL of a fetched referential file.
func SetImportRunSource(ctx context.Context, runID, sourceURL, fileHash string) error {
	pool := Pool()

	_, err := pool.Exec(ctx, `
		UPDATE import_runs SET source_url = NULLIF($2, ''), file_hash = NULLIF($3, '') WHERE id = $1
	`, runID, sourceURL, fileHash)
	if err != nil {
		return fmt.Errorf("failed to set import run source: %w", err)
	}
	return nil
}

// LinkArchiveToImportRun associates an archived source file with a run.
func LinkArchiveToImportRun(ctx context.Context, archiveID, runID string) error {
	pool := Pool()

	_, err := pool.Exec(ctx, `UPDATE import_runs SET archive_id = $1 WHERE id = $2`, archiveID, runID)
	if err != nil {
		return fmt.Errorf("failed to link archive to import run: %w", err)
	}
	return nil
}

// HandleInterruptedRuns fails any run left in pending or running state by a
// previous process. Called once at startup.
func HandleInterruptedRuns(ctx context.Context) (int, error) {
	pool := Pool()

	tag, err := pool.Exec(ctx, `
		UPDATE import_runs
		SET status = 'failed', completed_at = NOW(), error_message = 'interrupted by service restart'
		WHERE status IN ('pending', 'running')
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to handle interrupted runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteOldImportRuns removes finished runs older than the retention window,
// row errors first. Returns the number of runs removed.
func DeleteOldImportRuns(ctx context.Context, daysToKeep int) (int, error) {
	pool := Pool()
	cutoff := time.Now().AddDate(0, 0, -daysToKeep)

	_, err := pool.Exec(ctx, `
		DELETE FROM import_run_errors
		WHERE run_id IN (
			SELECT id FROM import_runs
			WHERE status IN ('completed', 'failed') AND created_at < $1
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old import run errors: %w", err)
	}

	tag, err := pool.Exec(ctx, `
		DELETE FROM import_runs
		WHERE status IN ('completed', 'failed') AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old import runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

const importRunColumns = `id, public_id, source, filename, file_type, file_hash, source_url, archive_id,
	status, started_at, completed_at, total_rows, valid_rows, persisted_rows,
	error_count, error_message, metadata, created_at`

func scanImportRun(row pgx.Row) (*ImportRun, error) {
	var run ImportRun
	err := row.Scan(
		&run.ID, &run.PublicID, &run.Source, &run.Filename, &run.FileType,
		&run.FileHash, &run.SourceURL, &run.ArchiveID,
		&run.Status, &run.StartedAt, &run.CompletedAt,
		&run.TotalRows, &run.ValidRows, &run.PersistedRows,
		&run.ErrorCount, &run.ErrorMessage, &run.Metadata, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetImportRun returns a run by row ID or public ID, nil when unknown.
func GetImportRun(ctx context.Context, id string) (*ImportRun, error) {
	pool := Pool()

	query := `SELECT ` + importRunColumns + ` FROM import_runs WHERE id::text = $1 OR public_id = $1`
	run, err := scanImportRun(pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying import run: %w", err)
	}
	return run, nil
}

// CountImportRuns returns the number of runs matching the status filter.
func CountImportRuns(ctx context.Context, status string) (int, error) {
	pool := Pool()

	var count int
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM import_runs WHERE ($1 = '' OR status = $1)`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting import runs: %w", err)
	}
	return count, nil
}

// ListImportRuns returns runs newest first.
func ListImportRuns(ctx context.Context, status string, limit, offset int) ([]ImportRun, error) {
	pool := Pool()

	query := `
		SELECT ` + importRunColumns + `
		FROM import_runs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := pool.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing import runs: %w", err)
	}
	defer rows.Close()

	runs := make([]ImportRun, 0)
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RecordImportErrors persists row-level problems of a run in one batch.
func RecordImportErrors(ctx context.Context, runID string, errs []ImportRunError) error {
	if len(errs) == 0 {
		return nil
	}

	pool := Pool()

	batch := &pgx.Batch{}
	now := time.Now()
	for _, e := range errs {
		batch.Queue(`
			INSERT INTO import_run_errors (id, run_id, error_type, severity, row_number, field, message, original_value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), runID, e.ErrorType, e.Severity, e.RowNumber, e.Field, e.Message, e.OriginalValue, now)
	}

	br := pool.SendBatch(ctx, batch)
	for i := 0; i < len(errs); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to record import error %d: %w", i, err)
		}
	}
	return br.Close()
}

// ListImportRunErrors returns the recorded problems of a run in row order.
func ListImportRunErrors(ctx context.Context, runID string, limit, offset int) ([]ImportRunError, error) {
	pool := Pool()

	query := `
		SELECT id, run_id, error_type, severity, row_number, field, message, original_value, created_at
		FROM import_run_errors
		WHERE run_id = $1
		ORDER BY row_number NULLS LAST, created_at
		LIMIT $2 OFFSET $3
	`
	rows, err := pool.Query(ctx, query, runID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing import run errors: %w", err)
	}
	defer rows.Close()

	result := make([]ImportRunError, 0)
	for rows.Next() {
		var e ImportRunError
		err := rows.Scan(&e.ID, &e.RunID, &e.ErrorType, &e.Severity, &e.RowNumber,
			&e.Field, &e.Message, &e.OriginalValue, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// CountImportRunErrors returns the number of recorded problems of a run.
func CountImportRunErrors(ctx context.Context, runID string) (int, error) {
	pool := Pool()

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM import_run_errors WHERE run_id = $1`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting import run errors: %w", err)
	}
	return count, nil
}

// GetImportErrorSummary aggregates a run's problems by type and severity.
func GetImportErrorSummary(ctx context.Context, runID string) ([]ImportErrorSummary, error) {
	pool := Pool()

	query := `
		SELECT error_type, severity, COUNT(*)
		FROM import_run_errors
		WHERE run_id = $1
		GROUP BY error_type, severity
		ORDER BY COUNT(*) DESC, error_type
	`
	rows, err := pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("error summarizing import run errors: %w", err)
	}
	defer rows.Close()

	summary := make([]ImportErrorSummary, 0)
	for rows.Next() {
		var s ImportErrorSummary
		if err := rows.Scan(&s.ErrorType, &s.Severity, &s.Count); err != nil {
			return nil, err
		}
		summary = append(summary, s)
	}
	return summary, rows.Err()
}
