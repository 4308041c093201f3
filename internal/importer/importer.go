// Package importer runs referential imports end to end: fetch, expand,
// parse, validate, persist, with phase bookkeeping on import_runs. A run
// never throws past its record; everything that goes wrong lands in
// import_run_errors and the terminal status.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/catalog"
	"github.com/primelio/cee-service/internal/database"
	ceehttp "github.com/primelio/cee-service/internal/http"
	"github.com/primelio/cee-service/internal/ingestion/zip"
	"github.com/primelio/cee-service/internal/parsers/csv"
	"github.com/primelio/cee-service/internal/parsers/xlsx"
	"github.com/primelio/cee-service/internal/storage"
	"github.com/primelio/cee-service/internal/taskqueue"
	"github.com/primelio/cee-service/internal/types"
)

// Options bounds a single import run.
type Options struct {
	MaxFileSize   int64
	MaxZipEntries int
	FetchTimeout  time.Duration
}

// DefaultOptions mirrors the configuration defaults: 50MB per file, 100
// bundle entries, two minutes per download.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:   50 * 1024 * 1024,
		MaxZipEntries: 100,
		FetchTimeout:  2 * time.Minute,
	}
}

// Importer executes referential import runs. The queue and cache are
// optional: without them a finished run skips the recompute enqueue and
// the cache refresh.
type Importer struct {
	store    storage.Storage
	fetcher  *ceehttp.Client
	expander *zip.Expander
	queue    *taskqueue.TaskQueue
	catalog  *catalog.Cache
	options  Options
	metrics  *MetricsRecorder
	logger   zerolog.Logger
}

func New(store storage.Storage, fetcher *ceehttp.Client, queue *taskqueue.TaskQueue, cache *catalog.Cache, options Options) *Importer {
	expandOptions := zip.DefaultExpandOptions()
	if options.MaxFileSize > 0 {
		expandOptions.MaxFileSize = options.MaxFileSize
	}
	if options.MaxZipEntries > 0 {
		expandOptions.MaxFiles = options.MaxZipEntries
	}

	return &Importer{
		store:    store,
		fetcher:  fetcher,
		expander: zip.NewExpander(store, expandOptions),
		queue:    queue,
		catalog:  cache,
		options:  options,
		metrics:  &MetricsRecorder{},
		logger:   log.With().Str("component", "importer").Logger(),
	}
}

// RunInput describes one import request: either uploaded bytes or a URL.
type RunInput struct {
	Source   types.ImportSource
	Filename string
	Content  []byte
	URL      string
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID         string             `json:"runId"`
	PublicID      string             `json:"publicId"`
	Status        types.ImportStatus `json:"status"`
	Files         int                `json:"files"`
	TotalRows     int                `json:"totalRows"`
	ValidRows     int                `json:"validRows"`
	Products      int                `json:"products"`
	Delegates     int                `json:"delegates"`
	Errors        int                `json:"errors"`
	Warnings      int                `json:"warnings"`
	Duration      time.Duration      `json:"duration"`
	FailureReason string             `json:"failureReason,omitempty"`
}

// runTally collects the row-level problems of a run and keeps the
// error/warning split for the run counters.
type runTally struct {
	issues   []database.ImportRunError
	errors   int
	warnings int
}

func (t *runTally) add(issue database.ImportRunError) {
	t.issues = append(t.issues, issue)
	if issue.Severity == string(types.SeverityWarning) {
		t.warnings++
	} else {
		t.errors++
	}
}

func (t *runTally) addAll(issues []database.ImportRunError) {
	for _, issue := range issues {
		t.add(issue)
	}
}

func (t *runTally) addRunIssue(errType types.ImportErrorType, severity types.ErrorSeverity, message string) {
	t.add(database.ImportRunError{
		ErrorType: string(errType),
		Severity:  string(severity),
		Message:   message,
	})
}

// parseIssues converts the parser's errors and warnings into run issues.
func parseIssues(result *types.ParseResult) []database.ImportRunError {
	issues := make([]database.ImportRunError, 0, len(result.Errors)+len(result.Warnings))
	for _, e := range result.Errors {
		issues = append(issues, database.ImportRunError{
			ErrorType:     string(types.ErrorTypeParse),
			Severity:      string(types.SeverityError),
			RowNumber:     e.RowNumber,
			Field:         e.Field,
			Message:       e.Message,
			OriginalValue: e.OriginalValue,
		})
	}
	for _, w := range result.Warnings {
		issues = append(issues, database.ImportRunError{
			ErrorType: string(types.ErrorTypeParse),
			Severity:  string(types.SeverityWarning),
			RowNumber: w.RowNumber,
			Field:     w.Field,
			Message:   w.Message,
		})
	}
	return issues
}

// prefixIssues marks issues with the file they came from when a bundle
// yields several files; row numbers alone would be ambiguous.
func prefixIssues(prefix string, issues []database.ImportRunError) []database.ImportRunError {
	if prefix == "" {
		return issues
	}
	for i := range issues {
		issues[i].Message = prefix + issues[i].Message
	}
	return issues
}

// Run executes a full import. The returned error covers only the failure
// to create the run record; every later problem is recorded on the run
// and reflected in the result status.
func (imp *Importer) Run(ctx context.Context, input RunInput) (*RunResult, error) {
	start := time.Now()

	run, err := database.CreateImportRun(ctx, input.Source, guessFilename(input), guessFileType(input))
	if err != nil {
		return nil, err
	}

	result := &RunResult{RunID: run.ID, PublicID: run.PublicID, Status: types.StatusRunning}
	tally := &runTally{}

	if err := database.MarkImportRunRunning(ctx, run.ID); err != nil {
		imp.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to mark run running")
	}

	imp.logger.Info().
		Str("run", run.PublicID).
		Str("source", string(input.Source)).
		Str("filename", guessFilename(input)).
		Str("url", input.URL).
		Msg("Starting referential import")

	fetched, err := imp.fetch(ctx, input)
	if err != nil {
		tally.addRunIssue(types.ErrorTypeFetch, types.SeverityCritical, err.Error())
		return imp.finishFailed(ctx, run, result, tally, start, err.Error())
	}

	if err := database.SetImportRunSource(ctx, run.ID, fetched.Source, fetched.Hash); err != nil {
		imp.logger.Warn().Err(err).Msg("Failed to record run source")
	}

	imp.archive(ctx, run, fetched)

	files := []types.ExpandedFile{{
		InnerFilename: fetched.Filename,
		Type:          fetched.Type,
		Content:       fetched.Content,
		Hash:          fetched.Hash,
	}}
	if fetched.Type == types.FileTypeZIP {
		expanded, err := imp.expander.ExpandAndStore(ctx, fetched.Content, run.PublicID, time.Now(), fetched.Filename)
		if err != nil {
			tally.addRunIssue(types.ErrorTypeExpand, types.SeverityCritical, err.Error())
			return imp.finishFailed(ctx, run, result, tally, start, err.Error())
		}
		if len(expanded) == 0 {
			msg := fmt.Sprintf("bundle %s contains no referential files", fetched.Filename)
			tally.addRunIssue(types.ErrorTypeExpand, types.SeverityCritical, msg)
			return imp.finishFailed(ctx, run, result, tally, start, msg)
		}
		files = expanded
	}
	result.Files = len(files)
	multi := len(files) > 1

	var coefficientRows []types.CoefficientRow
	var delegateRows []types.DelegateRow

	for _, file := range files {
		prefix := ""
		if multi {
			prefix = file.InnerFilename + ": "
		}
		imp.metrics.RecordFile(string(file.Type))

		parsed, err := imp.parseFile(file)
		if err != nil {
			tally.addRunIssue(types.ErrorTypeParse, types.SeverityCritical, prefix+err.Error())
			continue
		}

		result.TotalRows += parsed.TotalRows
		tally.addAll(prefixIssues(prefix, parseIssues(parsed)))

		switch parsed.Kind {
		case types.KindCoefficients:
			rows, issues := validateCoefficientRows(parsed.Rows)
			tally.addAll(prefixIssues(prefix, issues))
			coefficientRows = append(coefficientRows, rows...)
		case types.KindDelegates:
			rows, issues := validateDelegateRows(parsed.Delegates)
			tally.addAll(prefixIssues(prefix, issues))
			delegateRows = append(delegateRows, rows...)
		default:
			if parsed.TotalRows == 0 {
				tally.addRunIssue(types.ErrorTypeParse, types.SeverityWarning, prefix+"file contains no data rows")
			} else {
				tally.addRunIssue(types.ErrorTypeParse, types.SeverityError, prefix+"unrecognized referential layout")
			}
		}
	}

	result.ValidRows = len(coefficientRows) + len(delegateRows)

	products, groupIssues := groupProducts(coefficientRows)
	tally.addAll(groupIssues)
	delegates, delegateIssues := groupDelegates(delegateRows)
	tally.addAll(delegateIssues)

	if len(products) > 0 {
		n, err := database.UpsertCatalogProducts(ctx, products)
		if err != nil {
			tally.addRunIssue(types.ErrorTypePersist, types.SeverityCritical, err.Error())
			return imp.finishFailed(ctx, run, result, tally, start, err.Error())
		}
		result.Products = n
	}
	if len(delegates) > 0 {
		n, err := database.UpsertDelegates(ctx, delegates)
		if err != nil {
			tally.addRunIssue(types.ErrorTypePersist, types.SeverityCritical, err.Error())
			return imp.finishFailed(ctx, run, result, tally, start, err.Error())
		}
		result.Delegates = n
	}

	persisted := result.Products + result.Delegates
	if persisted == 0 && tally.errors > 0 {
		return imp.finishFailed(ctx, run, result, tally, start, "no rows survived validation")
	}

	imp.recordIssues(ctx, run.ID, tally)

	totals := database.ImportRunTotals{
		TotalRows:     result.TotalRows,
		ValidRows:     result.ValidRows,
		PersistedRows: persisted,
		ErrorCount:    tally.errors,
	}
	if err := database.MarkImportRunCompleted(ctx, run.ID, totals); err != nil {
		imp.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to mark run completed")
	}

	result.Status = types.StatusCompleted
	result.Errors = tally.errors
	result.Warnings = tally.warnings
	result.Duration = time.Since(start)

	imp.metrics.RecordRun(string(types.StatusCompleted), result.Duration)
	imp.metrics.RecordRows(result.ValidRows, tally.errors)

	imp.logger.Info().
		Str("run", run.PublicID).
		Int("files", result.Files).
		Int("total_rows", result.TotalRows).
		Int("valid_rows", result.ValidRows).
		Int("products", result.Products).
		Int("delegates", result.Delegates).
		Int("errors", tally.errors).
		Int("warnings", tally.warnings).
		Dur("duration", result.Duration).
		Msg("Referential import completed")

	if persisted > 0 {
		imp.afterPersist(ctx, run.PublicID)
	}

	return result, nil
}

// parseFile dispatches on the detected file type.
func (imp *Importer) parseFile(file types.ExpandedFile) (*types.ParseResult, error) {
	switch file.Type {
	case types.FileTypeCSV:
		return csv.NewParser(csv.DefaultOptions()).Parse(file.Content)
	case types.FileTypeXLSX:
		return xlsx.NewParser(xlsx.DefaultOptions()).Parse(file.Content)
	default:
		return nil, fmt.Errorf("unsupported file type %q", file.Type)
	}
}

// afterPersist schedules the fleet recompute and refreshes the cache so
// new coefficients take effect without waiting for the TTL.
func (imp *Importer) afterPersist(ctx context.Context, runPublicID string) {
	if imp.queue != nil {
		payload := taskqueue.RecomputeAllPayload{Reason: "referential import " + runPublicID}
		if _, err := imp.queue.ScheduleTask(ctx, taskqueue.ScheduleTaskInput{
			TaskType: taskqueue.TaskTypeRecomputeAll,
			Payload:  payload,
		}); err != nil {
			imp.logger.Warn().Err(err).Msg("Failed to schedule snapshot recompute")
		}
	}
	if imp.catalog != nil {
		if err := imp.catalog.Refresh(ctx); err != nil {
			imp.logger.Warn().Err(err).Msg("Catalog refresh after import failed")
		}
	}
}

func (imp *Importer) finishFailed(ctx context.Context, run *database.ImportRun, result *RunResult, tally *runTally, start time.Time, cause string) (*RunResult, error) {
	imp.recordIssues(ctx, run.ID, tally)
	if err := database.MarkImportRunFailed(ctx, run.ID, cause); err != nil {
		imp.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to mark run failed")
	}

	result.Status = types.StatusFailed
	result.Errors = tally.errors
	result.Warnings = tally.warnings
	result.FailureReason = cause
	result.Duration = time.Since(start)

	imp.metrics.RecordRun(string(types.StatusFailed), result.Duration)
	imp.metrics.RecordRows(result.ValidRows, tally.errors)

	imp.logger.Error().
		Str("run", run.PublicID).
		Str("cause", cause).
		Msg("Referential import failed")

	return result, nil
}

func (imp *Importer) recordIssues(ctx context.Context, runID string, tally *runTally) {
	if len(tally.issues) == 0 {
		return
	}
	if err := database.RecordImportErrors(ctx, runID, tally.issues); err != nil {
		imp.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to record run issues")
	}
}
