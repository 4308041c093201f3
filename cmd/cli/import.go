package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	ceehttp "github.com/primelio/cee-service/internal/http"
	"github.com/primelio/cee-service/internal/http/ratelimit"
	"github.com/primelio/cee-service/internal/importer"
	"github.com/primelio/cee-service/internal/storage"
	"github.com/primelio/cee-service/internal/types"
)

var importURL string

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a CEE referential file",
	Long: `Import an operation referential (coefficients and delegate prices) from a
local XLSX, CSV or ZIP bundle, or download it with --url. The file is archived,
parsed and persisted, and the resulting run is printed.`,
	Example: `  ceectl import referentiel.xlsx
  ceectl import bundle.zip
  ceectl import --url https://partner.example.com/referentiel.zip`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importURL, "url", "", "Download the referential from a URL instead of a local file")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	input := importer.RunInput{Source: types.SourceCLI}
	switch {
	case importURL != "":
		input.URL = importURL
	case len(args) == 1:
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		input.Filename = filepath.Base(args[0])
		input.Content = content
	default:
		return fmt.Errorf("either specify a file or use --url")
	}

	store, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize archive storage: %w", err)
	}

	fetcher := ceehttp.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		MaxRetries:        cfg.RateLimit.MaxRetries,
		InitialBackoffMs:  cfg.RateLimit.InitialBackoffMs,
		MaxBackoffMs:      cfg.RateLimit.MaxBackoffMs,
	})

	// No queue and no cache: a CLI import neither schedules recomputes nor
	// refreshes a server's referential.
	imp := importer.New(store, fetcher, nil, nil, importer.Options{
		MaxFileSize:   cfg.Import.MaxFileSizeBytes,
		MaxZipEntries: cfg.Import.MaxZipEntries,
		FetchTimeout:  cfg.Import.FetchTimeout,
	})

	result, err := imp.Run(ctx, input)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	displayImportResult(result)

	if result.Status == types.StatusFailed {
		return fmt.Errorf("import run %s failed: %s", result.PublicID, result.FailureReason)
	}
	return nil
}

func displayImportResult(r *importer.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tFILES\tROWS\tVALID\tPRODUCTS\tDELEGATES\tERRORS\tWARNINGS\tDURATION")
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
		r.PublicID, r.Status, r.Files, r.TotalRows, r.ValidRows,
		r.Products, r.Delegates, r.Errors, r.Warnings, r.Duration.Round(time.Millisecond))
	w.Flush()
}
