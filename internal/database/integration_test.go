package database

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/primelio/cee-service/internal/rentability"
	"github.com/primelio/cee-service/internal/types"
	"github.com/primelio/cee-service/internal/valorisation"
)

// setupIntegrationDB starts a PostgreSQL container and points the package
// pool at it. The returned cleanup tears both down.
func setupIntegrationDB(ctx context.Context) (func(), error) {
	if testing.Short() {
		return func() {}, fmt.Errorf("skipping integration test in short mode")
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get port: %w", err)
	}

	connString := fmt.Sprintf("postgres://test:test@%s:%s/test?sslmode=disable", host, port.Port())

	// Migrations run through database/sql with lib/pq, like the deploy
	// tooling does; the pool under test stays pgx-only.
	if err := runTestMigrations(connString); err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := Connect(ctx, connString, 5, 1, time.Hour, 30*time.Minute); err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("connect: %w", err)
	}

	cleanup := func() {
		Close()
		container.Terminate(ctx)
	}

	return cleanup, nil
}

// runTestMigrations sets up the minimal schema for testing
func runTestMigrations(connString string) error {
	schema := `
		-- CEE operation referential
		CREATE TABLE IF NOT EXISTS catalog_products (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			label TEXT NOT NULL DEFAULT '',
			kwh_cumac JSONB NOT NULL DEFAULT '{}'::jsonb,
			multiplier_key TEXT NOT NULL DEFAULT '',
			multiplier_label TEXT NOT NULL DEFAULT '',
			multiplier_coefficient DOUBLE PRECISION,
			bonification DOUBLE PRECISION,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		-- Delegate purchase prices
		CREATE TABLE IF NOT EXISTS delegates (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			price_eur_per_mwh DOUBLE PRECISION NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		-- Per-project rentability snapshots
		CREATE TABLE IF NOT EXISTS project_snapshots (
			id UUID PRIMARY KEY,
			public_id TEXT NOT NULL UNIQUE,
			project_id TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			total_mwh_cumac DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_prime_eur DOUBLE PRECISION NOT NULL DEFAULT 0,
			ca_ttc DOUBLE PRECISION NOT NULL DEFAULT 0,
			cout_chantier_ttc DOUBLE PRECISION NOT NULL DEFAULT 0,
			marge_totale_ttc DOUBLE PRECISION NOT NULL DEFAULT 0,
			isolation_ht JSONB,
			isolation_ttc JSONB,
			eclairage_ht JSONB,
			eclairage_ttc JSONB,
			input JSONB,
			computed_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			last_recompute_at TIMESTAMPTZ
		);

		-- Archived source files
		CREATE TABLE IF NOT EXISTS archives (
			id TEXT PRIMARY KEY,
			source_url TEXT,
			filename TEXT NOT NULL,
			original_format TEXT NOT NULL,
			archive_path TEXT NOT NULL,
			archive_type TEXT NOT NULL,
			content_type TEXT,
			file_size BIGINT,
			checksum TEXT NOT NULL,
			imported_at TIMESTAMPTZ NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_archives_checksum ON archives(checksum);

		-- Referential import runs
		CREATE TABLE IF NOT EXISTS import_runs (
			id UUID PRIMARY KEY,
			public_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL,
			filename TEXT,
			file_type TEXT,
			file_hash TEXT,
			source_url TEXT,
			archive_id TEXT REFERENCES archives(id),
			status TEXT NOT NULL DEFAULT 'pending',
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			total_rows INTEGER,
			valid_rows INTEGER,
			persisted_rows INTEGER,
			error_count INTEGER,
			error_message TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL
		);

		-- Row-level import problems
		CREATE TABLE IF NOT EXISTS import_run_errors (
			id UUID PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES import_runs(id) ON DELETE CASCADE,
			error_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			row_number INTEGER,
			field TEXT,
			message TEXT NOT NULL,
			original_value TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
	`

	db, err := sql.Open("postgres", connString)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(schema)
	return err
}

// TestCatalogReferentialFlow tests the catalog and delegate upsert workflow
func TestCatalogReferentialFlow(t *testing.T) {
	ctx := context.Background()

	cleanup, err := setupIntegrationDB(ctx)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	coef := 2.0
	products := []CatalogProduct{
		{
			Code:  "BAT-EQ-127",
			Label: "Luminaires à modules LED",
			KwhCumac: map[string]float64{
				"Bureaux":   1000,
				"Commerces": 800,
			},
			MultiplierKey:         "nb_luminaires",
			MultiplierCoefficient: &coef,
			Active:                true,
		},
		{
			Code:     "BAT-EN-101",
			Label:    "Isolation de combles ou de toitures",
			KwhCumac: map[string]float64{"Bureaux": 1200},
			Active:   true,
		},
	}

	written, err := UpsertCatalogProducts(ctx, products)
	if err != nil {
		t.Fatalf("upsert catalog products: %v", err)
	}
	if written != 2 {
		t.Errorf("expected 2 products written, got %d", written)
	}

	// Re-import with a changed label updates in place, no duplicate rows.
	products[0].Label = "Luminaires à modules LED (rénovation)"
	if _, err := UpsertCatalogProducts(ctx, products); err != nil {
		t.Fatalf("re-upsert catalog products: %v", err)
	}

	count, err := CountCatalogProducts(ctx, "", false)
	if err != nil {
		t.Fatalf("count catalog products: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 products after re-import, got %d", count)
	}

	got, err := GetCatalogProductByCode(ctx, "BAT-EQ-127")
	if err != nil {
		t.Fatalf("get catalog product: %v", err)
	}
	if got == nil {
		t.Fatal("expected product, got nil")
	}
	if got.Label != "Luminaires à modules LED (rénovation)" {
		t.Errorf("label not updated: %s", got.Label)
	}
	if got.KwhCumac["Bureaux"] != 1000 {
		t.Errorf("kwh table not round-tripped: %v", got.KwhCumac)
	}
	if got.MultiplierCoefficient == nil || *got.MultiplierCoefficient != 2.0 {
		t.Errorf("multiplier coefficient not round-tripped: %v", got.MultiplierCoefficient)
	}
	if got.Bonification != nil {
		t.Errorf("expected NULL bonification, got %v", *got.Bonification)
	}

	missing, err := GetCatalogProductByCode(ctx, "BAT-XX-999")
	if err != nil {
		t.Fatalf("get unknown product: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown code, got %+v", missing)
	}

	filtered, err := ListCatalogProducts(ctx, "EQ", true, 10, 0)
	if err != nil {
		t.Fatalf("list catalog products: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Code != "BAT-EQ-127" {
		t.Errorf("expected only BAT-EQ-127 for filter EQ, got %+v", filtered)
	}

	delegates := []Delegate{
		{Name: "TotalEnergies", PriceEurPerMwh: 50, Active: true},
		{Name: "EDF Obligé", PriceEurPerMwh: 48.5, Active: true},
	}
	if _, err := UpsertDelegates(ctx, delegates); err != nil {
		t.Fatalf("upsert delegates: %v", err)
	}

	delegates[0].PriceEurPerMwh = 52
	if _, err := UpsertDelegates(ctx, delegates); err != nil {
		t.Fatalf("re-upsert delegates: %v", err)
	}

	delegate, err := GetDelegateByName(ctx, "TotalEnergies")
	if err != nil {
		t.Fatalf("get delegate: %v", err)
	}
	if delegate == nil || delegate.PriceEurPerMwh != 52 {
		t.Errorf("delegate price not updated: %+v", delegate)
	}

	loadedProducts, loadedDelegates, err := LoadReferential(ctx)
	if err != nil {
		t.Fatalf("load referential: %v", err)
	}
	if len(loadedProducts) != 2 || len(loadedDelegates) != 2 {
		t.Errorf("referential load: got %d products, %d delegates", len(loadedProducts), len(loadedDelegates))
	}
}

// TestSnapshotPersistenceFlow tests snapshot upsert, change detection and
// the category switch clearing the inactive block columns.
func TestSnapshotPersistenceFlow(t *testing.T) {
	ctx := context.Background()

	cleanup, err := setupIntegrationDB(ctx)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	const tolerance = 0.005

	totals := &valorisation.ProjectTotals{TotalMwhCumac: 100, TotalEur: 1000, TotalPrimeEur: 1000, ComputedLines: 1, HasComputedTotals: true}
	snap := &rentability.ProjectSnapshot{
		Category:        rentability.CategoryInsulation,
		HT:              rentability.CategorySnapshot{CA: 10000, CoutChantier: 6300, MargeTotale: 3700, MargeParUnite: 37, FraisAdditionnels: 300},
		TTC:             rentability.CategorySnapshot{CA: 10000, CoutChantier: 6330, MargeTotale: 3670, MargeParUnite: 36.7, FraisAdditionnels: 330},
		CaTTC:           10000,
		CoutChantierTTC: 6330,
		MargeTotaleTTC:  3670,
	}

	row, err := NewProjectSnapshotRow("proj-it-1", totals, snap)
	if err != nil {
		t.Fatalf("build snapshot row: %v", err)
	}
	inputDoc := `{"category": "isolation", "lines": []}`
	row.Input = &inputDoc

	wrote, err := UpsertProjectSnapshot(ctx, row, tolerance)
	if err != nil {
		t.Fatalf("upsert snapshot: %v", err)
	}
	if !wrote {
		t.Error("expected first upsert to write")
	}

	// Identical figures within tolerance skip the write.
	same, err := NewProjectSnapshotRow("proj-it-1", totals, snap)
	if err != nil {
		t.Fatalf("build snapshot row: %v", err)
	}
	wrote, err = UpsertProjectSnapshot(ctx, same, tolerance)
	if err != nil {
		t.Fatalf("re-upsert snapshot: %v", err)
	}
	if wrote {
		t.Error("expected unchanged upsert to skip")
	}

	stored, err := GetProjectSnapshot(ctx, "proj-it-1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored snapshot")
	}
	if stored.Category != "isolation" {
		t.Errorf("expected isolation category, got %s", stored.Category)
	}
	if stored.IsolationHT == nil || stored.IsolationTTC == nil {
		t.Error("expected insulation blocks to be populated")
	}
	if stored.EclairageHT != nil || stored.EclairageTTC != nil {
		t.Error("expected lighting blocks to be NULL")
	}

	// Category switch overwrites the row and clears the insulation blocks.
	lightingSnap := &rentability.ProjectSnapshot{
		Category:        rentability.CategoryLighting,
		HT:              rentability.CategorySnapshot{CA: 8000, CoutChantier: 4400, MargeTotale: 3600, MargeParUnite: 18, FraisAdditionnels: 200},
		TTC:             rentability.CategorySnapshot{CA: 8000, CoutChantier: 4417, MargeTotale: 3583, MargeParUnite: 17.9, FraisAdditionnels: 217},
		CaTTC:           8000,
		CoutChantierTTC: 4417,
		MargeTotaleTTC:  3583,
	}
	lightingRow, err := NewProjectSnapshotRow("proj-it-1", totals, lightingSnap)
	if err != nil {
		t.Fatalf("build lighting row: %v", err)
	}
	wrote, err = UpsertProjectSnapshot(ctx, lightingRow, tolerance)
	if err != nil {
		t.Fatalf("upsert lighting snapshot: %v", err)
	}
	if !wrote {
		t.Error("expected category switch to write")
	}

	switched, err := GetProjectSnapshot(ctx, "proj-it-1")
	if err != nil {
		t.Fatalf("get switched snapshot: %v", err)
	}
	if switched.Category != "eclairage" {
		t.Errorf("expected eclairage category, got %s", switched.Category)
	}
	if switched.EclairageHT == nil || switched.EclairageTTC == nil {
		t.Error("expected lighting blocks to be populated after switch")
	}
	if switched.IsolationHT != nil || switched.IsolationTTC != nil {
		t.Error("expected insulation blocks to be cleared after category switch")
	}
	// A write without an input document keeps the stored one.
	if switched.Input == nil {
		t.Error("expected stored input document to survive a write without one")
	}

	// Recompute stamp is independent of figure changes.
	if switched.LastRecomputeAt != nil {
		t.Error("expected no recompute stamp yet")
	}
	if err := TouchSnapshotRecompute(ctx, "proj-it-1"); err != nil {
		t.Fatalf("touch recompute: %v", err)
	}
	touched, err := GetProjectSnapshot(ctx, "proj-it-1")
	if err != nil {
		t.Fatalf("get touched snapshot: %v", err)
	}
	if touched.LastRecomputeAt == nil {
		t.Error("expected recompute stamp after touch")
	}

	// Second project for list and count coverage.
	row2, err := NewProjectSnapshotRow("proj-it-2", nil, snap)
	if err != nil {
		t.Fatalf("build second row: %v", err)
	}
	if _, err := UpsertProjectSnapshot(ctx, row2, tolerance); err != nil {
		t.Fatalf("upsert second snapshot: %v", err)
	}

	count, err := CountProjectSnapshots(ctx, "")
	if err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 snapshots, got %d", count)
	}

	insulationIDs, err := ListSnapshotProjectIDs(ctx, "isolation")
	if err != nil {
		t.Fatalf("list project ids: %v", err)
	}
	if len(insulationIDs) != 1 || insulationIDs[0] != "proj-it-2" {
		t.Errorf("expected [proj-it-2] for isolation filter, got %v", insulationIDs)
	}

	all, err := ListProjectSnapshots(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 listed snapshots, got %d", len(all))
	}
}

// TestImportRunLifecycle tests run bookkeeping, error recording and the
// startup recovery of interrupted runs.
func TestImportRunLifecycle(t *testing.T) {
	ctx := context.Background()

	cleanup, err := setupIntegrationDB(ctx)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	run, err := CreateImportRun(ctx, types.SourceAPI, "referentiel.xlsx", "xlsx")
	if err != nil {
		t.Fatalf("create import run: %v", err)
	}
	if run.Status != "pending" {
		t.Errorf("expected pending status, got %s", run.Status)
	}

	if err := MarkImportRunRunning(ctx, run.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	// Archive the source file and link it to the run.
	data := []byte("fake workbook bytes")
	archive := &Archive{
		ID:             GenerateArchiveID(),
		Filename:       "referentiel.xlsx",
		OriginalFormat: "xlsx",
		ArchivePath:    "archives/2026/01/referentiel.xlsx",
		ArchiveType:    "local",
		Checksum:       CalculateChecksum(data),
		ImportedAt:     time.Now(),
	}
	if err := CreateArchive(ctx, archive); err != nil {
		t.Fatalf("create archive: %v", err)
	}
	if err := LinkArchiveToImportRun(ctx, archive.ID, run.ID); err != nil {
		t.Fatalf("link archive: %v", err)
	}

	dup, err := GetArchiveByChecksum(ctx, CalculateChecksum(data))
	if err != nil {
		t.Fatalf("get archive by checksum: %v", err)
	}
	if dup == nil || dup.ID != archive.ID {
		t.Errorf("checksum lookup failed: %+v", dup)
	}

	rowNum2 := 2
	rowNum7 := 7
	errs := []ImportRunError{
		{ErrorType: "validation", Severity: "warning", RowNumber: &rowNum2, Field: types.StringPtr("kwh_cumac"), Message: "kwh cumac is zero", OriginalValue: types.StringPtr("0")},
		{ErrorType: "validation", Severity: "warning", RowNumber: &rowNum7, Field: types.StringPtr("code"), Message: "unrecognized code format", OriginalValue: types.StringPtr("FOO")},
		{ErrorType: "parse", Severity: "error", Message: "row has fewer cells than header"},
	}
	if err := RecordImportErrors(ctx, run.ID, errs); err != nil {
		t.Fatalf("record import errors: %v", err)
	}

	listed, err := ListImportRunErrors(ctx, run.ID, 10, 0)
	if err != nil {
		t.Fatalf("list import errors: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 errors, got %d", len(listed))
	}
	// NULL row numbers sort last.
	if listed[0].RowNumber == nil || *listed[0].RowNumber != 2 {
		t.Errorf("expected row 2 first, got %+v", listed[0].RowNumber)
	}
	if listed[2].RowNumber != nil {
		t.Errorf("expected NULL row number last, got %+v", listed[2].RowNumber)
	}

	summary, err := GetImportErrorSummary(ctx, run.ID)
	if err != nil {
		t.Fatalf("error summary: %v", err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected 2 summary buckets, got %d", len(summary))
	}
	if summary[0].ErrorType != "validation" || summary[0].Count != 2 {
		t.Errorf("expected validation x2 first, got %+v", summary[0])
	}

	if err := MarkImportRunCompleted(ctx, run.ID, ImportRunTotals{TotalRows: 10, ValidRows: 8, PersistedRows: 8, ErrorCount: 3}); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	// Lookup works with the public ID too.
	byPublic, err := GetImportRun(ctx, run.PublicID)
	if err != nil {
		t.Fatalf("get run by public id: %v", err)
	}
	if byPublic == nil {
		t.Fatal("expected run by public id")
	}
	if byPublic.Status != "completed" {
		t.Errorf("expected completed status, got %s", byPublic.Status)
	}
	if byPublic.StartedAt == nil || byPublic.CompletedAt == nil {
		t.Error("expected start and completion stamps")
	}
	if byPublic.TotalRows == nil || *byPublic.TotalRows != 10 {
		t.Errorf("total rows not persisted: %+v", byPublic.TotalRows)
	}
	if byPublic.ArchiveID == nil || *byPublic.ArchiveID != archive.ID {
		t.Errorf("archive not linked: %+v", byPublic.ArchiveID)
	}

	// A run left behind by a crashed process is failed at startup.
	stale, err := CreateImportRun(ctx, types.SourceCLI, "", "")
	if err != nil {
		t.Fatalf("create stale run: %v", err)
	}
	recovered, err := HandleInterruptedRuns(ctx)
	if err != nil {
		t.Fatalf("handle interrupted runs: %v", err)
	}
	if recovered != 1 {
		t.Errorf("expected 1 interrupted run, got %d", recovered)
	}
	staleAfter, err := GetImportRun(ctx, stale.ID)
	if err != nil {
		t.Fatalf("get stale run: %v", err)
	}
	if staleAfter.Status != "failed" {
		t.Errorf("expected failed status after recovery, got %s", staleAfter.Status)
	}

	completedCount, err := CountImportRuns(ctx, "completed")
	if err != nil {
		t.Fatalf("count completed runs: %v", err)
	}
	if completedCount != 1 {
		t.Errorf("expected 1 completed run, got %d", completedCount)
	}

	runs, err := ListImportRuns(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}
