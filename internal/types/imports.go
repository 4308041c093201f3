package types

import "time"

// FileType represents supported referential file types
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeZIP  FileType = "zip"
)

// CoefficientRow represents a normalized row from a CEE referential source.
// One row carries the kWh cumac value for a single (operation code, building
// type) pair plus the multiplier configuration of the operation.
type CoefficientRow struct {
	OperationCode         string   `json:"operationCode"`         // e.g. BAT-EQ-127
	Label                 *string  `json:"label,omitempty"`       // human-readable operation name
	BuildingType          string   `json:"buildingType"`          // e.g. "Bureaux", "Commerces"
	KwhCumac              float64  `json:"kwhCumac"`              // per multiplier unit
	MultiplierKey         *string  `json:"multiplierKey,omitempty"`
	MultiplierLabel       *string  `json:"multiplierLabel,omitempty"`
	MultiplierCoefficient *float64 `json:"multiplierCoefficient,omitempty"`
	Bonification          *float64 `json:"bonification,omitempty"`
	RowNumber             int      `json:"rowNumber"`
	RawData               string   `json:"rawData"`
}

// DelegateRow represents a normalized delegate pricing row.
type DelegateRow struct {
	Name           string  `json:"name"`
	PriceEurPerMwh float64 `json:"priceEurPerMwh"`
	Active         bool    `json:"active"`
	RowNumber      int     `json:"rowNumber"`
	RawData        string  `json:"rawData"`
}

// FetchedFile represents a referential file retrieved from disk or URL
type FetchedFile struct {
	Source   string   `json:"source"` // path or URL
	Filename string   `json:"filename"`
	Type     FileType `json:"type"`
	Content  []byte   `json:"content"`
	Hash     string   `json:"hash"`
}

// ExpandedFile represents a file expanded from a ZIP bundle
type ExpandedFile struct {
	Parent        string   `json:"parent"` // bundle filename
	InnerFilename string   `json:"innerFilename"`
	Type          FileType `json:"type"`
	Content       []byte   `json:"content"`
	Hash          string   `json:"hash"`
}

// ParseOptions represents options for parsing
type ParseOptions struct {
	SkipInvalid *bool `json:"skipInvalid,omitempty"`
	Limit       *int  `json:"limit,omitempty"`
}

// ParseError represents a parsing error
type ParseError struct {
	RowNumber     *int    `json:"rowNumber,omitempty"`
	Field         *string `json:"field,omitempty"`
	Message       string  `json:"message"`
	OriginalValue *string `json:"originalValue,omitempty"`
}

// ParseWarning represents a parsing warning
type ParseWarning struct {
	RowNumber *int    `json:"rowNumber,omitempty"`
	Field     *string `json:"field,omitempty"`
	Message   string  `json:"message"`
}

// ReferentialKind distinguishes the two referential layouts: kWh cumac
// coefficient tables and delegate price lists.
type ReferentialKind string

const (
	KindCoefficients ReferentialKind = "coefficients"
	KindDelegates    ReferentialKind = "delegates"
	KindUnknown      ReferentialKind = "unknown"
)

// ParseResult represents result of parsing a referential file.
// Rows is populated for coefficient files, Delegates for price lists.
type ParseResult struct {
	Kind      ReferentialKind  `json:"kind,omitempty"`
	Rows      []CoefficientRow `json:"rows"`
	Delegates []DelegateRow    `json:"delegates,omitempty"`
	Errors    []ParseError     `json:"errors,omitempty"`
	Warnings  []ParseWarning   `json:"warnings,omitempty"`
	TotalRows int              `json:"totalRows"`
	ValidRows int              `json:"validRows"`
}

// ImportSource represents source of an import run
type ImportSource string

const (
	SourceCLI    ImportSource = "cli"
	SourceAPI    ImportSource = "api"
	SourceWorker ImportSource = "worker"
)

// ImportStatus represents status of an import run
type ImportStatus string

const (
	StatusPending   ImportStatus = "pending"
	StatusRunning   ImportStatus = "running"
	StatusCompleted ImportStatus = "completed"
	StatusFailed    ImportStatus = "failed"
)

// ErrorSeverity represents severity levels
type ErrorSeverity string

const (
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ImportErrorType represents error types for import run errors
type ImportErrorType string

const (
	ErrorTypeFetch      ImportErrorType = "fetch"
	ErrorTypeExpand     ImportErrorType = "expand"
	ErrorTypeParse      ImportErrorType = "parse"
	ErrorTypeValidation ImportErrorType = "validation"
	ErrorTypePersist    ImportErrorType = "persist"
	ErrorTypeUnknown    ImportErrorType = "unknown"
)

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to the given int
func IntPtr(i int) *int {
	return &i
}

// Float64Ptr returns a pointer to the given float64
func Float64Ptr(f float64) *float64 {
	return &f
}

// TimePtr returns a pointer to the given time
func TimePtr(t time.Time) *time.Time {
	return &t
}

// BoolPtr returns a pointer to the given bool
func BoolPtr(b bool) *bool {
	return &b
}
