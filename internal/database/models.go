package database

import (
	"time"
)

// CatalogProduct represents a row of the CEE operation referential.
// KwhCumac is stored as JSONB mapping building types to kWh cumac values.
type CatalogProduct struct {
	ID                    string             `json:"id"`    // UUID
	Code                  string             `json:"code"`  // e.g. BAT-EQ-127, unique
	Label                 string             `json:"label"` // operation name
	KwhCumac              map[string]float64 `json:"kwh_cumac"`
	MultiplierKey         string             `json:"multiplier_key"`
	MultiplierLabel       string             `json:"multiplier_label"`
	MultiplierCoefficient *float64           `json:"multiplier_coefficient"` // NULL -> engine default
	Bonification          *float64           `json:"bonification"`           // NULL -> engine default
	Active                bool               `json:"active"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// Delegate represents a CEE delegate (obligated buyer) and its purchase price
type Delegate struct {
	ID             string    `json:"id"`   // UUID
	Name           string    `json:"name"` // unique
	PriceEurPerMwh float64   `json:"price_eur_per_mwh"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProjectSnapshotRow is the persisted rentability snapshot of one project.
// Exactly one category block pair is populated; the other pair is NULL so a
// category switch leaves no stale figures behind.
type ProjectSnapshotRow struct {
	ID              string     `json:"id"`        // UUID
	PublicID        string     `json:"public_id"` // snap_ prefixed CUID2
	ProjectID       string     `json:"project_id"`
	Category        string     `json:"category"` // 'isolation' | 'eclairage'
	TotalMwhCumac   float64    `json:"total_mwh_cumac"`
	TotalPrimeEur   float64    `json:"total_prime_eur"`
	CaTTC           float64    `json:"ca_ttc"`
	CoutChantierTTC float64    `json:"cout_chantier_ttc"`
	MargeTotaleTTC  float64    `json:"marge_totale_ttc"`
	IsolationHT     *string    `json:"isolation_ht"`  // JSONB category block
	IsolationTTC    *string    `json:"isolation_ttc"` // JSONB category block
	EclairageHT     *string    `json:"eclairage_ht"`  // JSONB category block
	EclairageTTC    *string    `json:"eclairage_ttc"` // JSONB category block
	Input           *string    `json:"input,omitempty"` // JSONB compute request, replayed on recompute
	ComputedAt      time.Time  `json:"computed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastRecomputeAt *time.Time `json:"last_recompute_at"`
}

// ImportRun represents a single referential import run
type ImportRun struct {
	ID            string     `json:"id"`        // UUID
	PublicID      string     `json:"public_id"` // imp_ prefixed CUID2
	Source        string     `json:"source"`    // 'cli', 'api', 'worker'
	Filename      *string    `json:"filename"`
	FileType      *string    `json:"file_type"` // 'csv', 'xlsx', 'zip'
	FileHash      *string    `json:"file_hash"`
	SourceURL     *string    `json:"source_url"`
	ArchiveID     *string    `json:"archive_id"`
	Status        string     `json:"status"` // 'pending', 'running', 'completed', 'failed'
	StartedAt     *time.Time `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	TotalRows     *int       `json:"total_rows"`
	ValidRows     *int       `json:"valid_rows"`
	PersistedRows *int       `json:"persisted_rows"`
	ErrorCount    *int       `json:"error_count"`
	ErrorMessage  *string    `json:"error_message"`
	Metadata      *string    `json:"metadata"` // JSON for additional run info
	CreatedAt     time.Time  `json:"created_at"`
}

// ImportRunError represents a single row-level problem during an import run
type ImportRunError struct {
	ID            string    `json:"id"`     // UUID
	RunID         string    `json:"run_id"` // FK to import_runs.id
	ErrorType     string    `json:"error_type"`
	Severity      string    `json:"severity"`
	RowNumber     *int      `json:"row_number"`
	Field         *string   `json:"field"`
	Message       string    `json:"message"`
	OriginalValue *string   `json:"original_value"`
	CreatedAt     time.Time `json:"created_at"`
}

// ImportErrorSummary aggregates run errors by type and severity
type ImportErrorSummary struct {
	ErrorType string `json:"error_type"`
	Severity  string `json:"severity"`
	Count     int    `json:"count"`
}
