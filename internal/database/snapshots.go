package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/primelio/cee-service/internal/pkg/cuid2"
	"github.com/primelio/cee-service/internal/rentability"
	"github.com/primelio/cee-service/internal/valorisation"
)

// NewProjectSnapshotRow maps engine output onto a storable row. The active
// category's HT/TTC blocks are serialized and the other pair stays nil, so
// the upsert overwrites any figures left by a previous category.
func NewProjectSnapshotRow(projectID string, totals *valorisation.ProjectTotals, snap *rentability.ProjectSnapshot) (*ProjectSnapshotRow, error) {
	htJSON, err := json.Marshal(snap.HT)
	if err != nil {
		return nil, fmt.Errorf("failed to encode HT block: %w", err)
	}
	ttcJSON, err := json.Marshal(snap.TTC)
	if err != nil {
		return nil, fmt.Errorf("failed to encode TTC block: %w", err)
	}
	ht := string(htJSON)
	ttc := string(ttcJSON)

	row := &ProjectSnapshotRow{
		PublicID:        cuid2.NewSnapshotID(),
		ProjectID:       projectID,
		Category:        string(snap.Category),
		CaTTC:           snap.CaTTC,
		CoutChantierTTC: snap.CoutChantierTTC,
		MargeTotaleTTC:  snap.MargeTotaleTTC,
		ComputedAt:      time.Now(),
	}
	if totals != nil {
		row.TotalMwhCumac = totals.TotalMwhCumac
		row.TotalPrimeEur = totals.TotalPrimeEur
	}

	switch snap.Category {
	case rentability.CategoryLighting:
		row.EclairageHT = &ht
		row.EclairageTTC = &ttc
	default:
		row.IsolationHT = &ht
		row.IsolationTTC = &ttc
	}
	return row, nil
}

// SnapshotChanged reports whether next differs from existing beyond the
// tolerance. The engine computes at full precision; this threshold exists
// only to stop churn writes when a recompute lands on the same figures.
// An edited input document always writes, even when the figures match.
func SnapshotChanged(existing, next *ProjectSnapshotRow, tolerance float64) bool {
	if existing == nil {
		return true
	}
	if existing.Category != next.Category {
		return true
	}
	if next.Input != nil && !inputEqual(existing.Input, next.Input) {
		return true
	}
	pairs := [][2]float64{
		{existing.TotalMwhCumac, next.TotalMwhCumac},
		{existing.TotalPrimeEur, next.TotalPrimeEur},
		{existing.CaTTC, next.CaTTC},
		{existing.CoutChantierTTC, next.CoutChantierTTC},
		{existing.MargeTotaleTTC, next.MargeTotaleTTC},
	}
	for _, p := range pairs {
		if math.Abs(p[0]-p[1]) > tolerance {
			return true
		}
	}
	return false
}

// inputEqual compares two stored request documents semantically; JSONB
// normalizes key order and spacing, so the raw strings cannot be compared.
func inputEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	var av, bv any
	if err := json.Unmarshal([]byte(*a), &av); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(*b), &bv); err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

const snapshotColumns = `id, public_id, project_id, category, total_mwh_cumac, total_prime_eur,
	ca_ttc, cout_chantier_ttc, marge_totale_ttc,
	isolation_ht, isolation_ttc, eclairage_ht, eclairage_ttc, input,
	computed_at, created_at, updated_at, last_recompute_at`

func scanSnapshot(row pgx.Row) (*ProjectSnapshotRow, error) {
	var s ProjectSnapshotRow
	err := row.Scan(
		&s.ID, &s.PublicID, &s.ProjectID, &s.Category, &s.TotalMwhCumac, &s.TotalPrimeEur,
		&s.CaTTC, &s.CoutChantierTTC, &s.MargeTotaleTTC,
		&s.IsolationHT, &s.IsolationTTC, &s.EclairageHT, &s.EclairageTTC, &s.Input,
		&s.ComputedAt, &s.CreatedAt, &s.UpdatedAt, &s.LastRecomputeAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertProjectSnapshot writes a snapshot row, skipping the write when the
// stored figures already match within tolerance. All four category block
// columns are always assigned, which is what clears the inactive side after
// a category switch. Returns whether a write happened.
func UpsertProjectSnapshot(ctx context.Context, row *ProjectSnapshotRow, tolerance float64) (bool, error) {
	existing, err := GetProjectSnapshot(ctx, row.ProjectID)
	if err != nil {
		return false, err
	}
	if !SnapshotChanged(existing, row, tolerance) {
		return false, nil
	}

	pool := Pool()
	now := time.Now()

	query := `
		INSERT INTO project_snapshots (
			id, public_id, project_id, category, total_mwh_cumac, total_prime_eur,
			ca_ttc, cout_chantier_ttc, marge_totale_ttc,
			isolation_ht, isolation_ttc, eclairage_ht, eclairage_ttc, input,
			computed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		ON CONFLICT (project_id) DO UPDATE SET
			category = EXCLUDED.category,
			total_mwh_cumac = EXCLUDED.total_mwh_cumac,
			total_prime_eur = EXCLUDED.total_prime_eur,
			ca_ttc = EXCLUDED.ca_ttc,
			cout_chantier_ttc = EXCLUDED.cout_chantier_ttc,
			marge_totale_ttc = EXCLUDED.marge_totale_ttc,
			isolation_ht = EXCLUDED.isolation_ht,
			isolation_ttc = EXCLUDED.isolation_ttc,
			eclairage_ht = EXCLUDED.eclairage_ht,
			eclairage_ttc = EXCLUDED.eclairage_ttc,
			input = COALESCE(EXCLUDED.input, project_snapshots.input),
			computed_at = EXCLUDED.computed_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err = pool.Exec(ctx, query,
		uuid.New().String(), row.PublicID, row.ProjectID, row.Category,
		row.TotalMwhCumac, row.TotalPrimeEur,
		row.CaTTC, row.CoutChantierTTC, row.MargeTotaleTTC,
		row.IsolationHT, row.IsolationTTC, row.EclairageHT, row.EclairageTTC, row.Input,
		row.ComputedAt, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert project snapshot: %w", err)
	}
	return true, nil
}

// TouchSnapshotRecompute stamps the last recompute attempt on a project
// snapshot. Called even when the recomputed figures matched the stored ones,
// so operators can tell "unchanged" from "never revisited".
func TouchSnapshotRecompute(ctx context.Context, projectID string) error {
	pool := Pool()

	_, err := pool.Exec(ctx,
		`UPDATE project_snapshots SET last_recompute_at = NOW() WHERE project_id = $1`,
		projectID)
	if err != nil {
		return fmt.Errorf("failed to stamp snapshot recompute: %w", err)
	}
	return nil
}

// GetProjectSnapshot returns the stored snapshot for a project, or nil when
// the project has none yet.
func GetProjectSnapshot(ctx context.Context, projectID string) (*ProjectSnapshotRow, error) {
	pool := Pool()

	query := `SELECT ` + snapshotColumns + ` FROM project_snapshots WHERE project_id = $1`
	s, err := scanSnapshot(pool.QueryRow(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying project snapshot: %w", err)
	}
	return s, nil
}

// CountProjectSnapshots returns the number of snapshots matching the filter.
func CountProjectSnapshots(ctx context.Context, category string) (int, error) {
	pool := Pool()

	query := `SELECT COUNT(*) FROM project_snapshots WHERE ($1 = '' OR category = $1)`
	var count int
	if err := pool.QueryRow(ctx, query, category).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting project snapshots: %w", err)
	}
	return count, nil
}

// ListProjectSnapshots returns snapshots ordered by most recently computed.
func ListProjectSnapshots(ctx context.Context, category string, limit, offset int) ([]ProjectSnapshotRow, error) {
	pool := Pool()

	query := `
		SELECT ` + snapshotColumns + `
		FROM project_snapshots
		WHERE ($1 = '' OR category = $1)
		ORDER BY computed_at DESC, project_id
		LIMIT $2 OFFSET $3
	`
	rows, err := pool.Query(ctx, query, category, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing project snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]ProjectSnapshotRow, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *s)
	}
	return snapshots, rows.Err()
}

// ListSnapshotProjectIDs returns the project IDs of stored snapshots,
// optionally filtered by category. The batch recompute job iterates these.
func ListSnapshotProjectIDs(ctx context.Context, category string) ([]string, error) {
	pool := Pool()

	query := `SELECT project_id FROM project_snapshots WHERE ($1 = '' OR category = $1) ORDER BY project_id`
	rows, err := pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("error listing snapshot project ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
