package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/primelio/cee-service/internal/compute"
	"github.com/primelio/cee-service/internal/database"
)

var (
	computeFile    string
	computeProject string
	computePersist bool
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute a project's valorisation and rentability",
	Long: `Run the full computation for a project document against the current
referential and print the result. The document comes from --file, stdin, or
--project (the stored compute document of an existing snapshot). With
--persist the resulting snapshot is written to the database.`,
	Example: `  ceectl compute --file project.json
  ceectl compute --project proj_42 --persist
  cat project.json | ceectl compute --persist`,
	RunE: runCompute,
}

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVar(&computeFile, "file", "", "Project compute document (defaults to stdin)")
	computeCmd.Flags().StringVar(&computeProject, "project", "", "Replay the stored document of an existing snapshot")
	computeCmd.Flags().BoolVar(&computePersist, "persist", false, "Persist the resulting snapshot")
	computeCmd.MarkFlagsMutuallyExclusive("file", "project")
}

func runCompute(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var doc []byte
	var err error
	switch {
	case computeProject != "":
		doc, err = loadStoredDocument(ctx, computeProject)
	case computeFile != "":
		doc, err = os.ReadFile(computeFile)
	default:
		doc, err = readStdin()
	}
	if err != nil {
		return err
	}

	var req compute.Request
	if err := json.Unmarshal(doc, &req); err != nil {
		return fmt.Errorf("invalid compute document: %w", err)
	}

	svc, _, cleanup, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := svc.Compute(&req)
	if err != nil {
		return err
	}

	if computePersist {
		if req.ProjectID == "" {
			return fmt.Errorf("--persist requires a projectId in the document")
		}
		row, err := database.NewProjectSnapshotRow(req.ProjectID, &resp.Totals, resp.Snapshot)
		if err != nil {
			return fmt.Errorf("failed to build snapshot row: %w", err)
		}
		input := string(doc)
		row.Input = &input
		written, err := database.UpsertProjectSnapshot(ctx, row, cfg.Engine.ChangeTolerance)
		if err != nil {
			return fmt.Errorf("failed to persist snapshot: %w", err)
		}
		if written {
			logger.Info().Str("project_id", req.ProjectID).Msg("Snapshot written")
		} else {
			logger.Info().Str("project_id", req.ProjectID).Msg("Snapshot unchanged, skipped")
		}
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func loadStoredDocument(ctx context.Context, projectID string) ([]byte, error) {
	row, err := database.GetProjectSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("no snapshot stored for project %s", projectID)
	}
	if row.Input == nil {
		return nil, fmt.Errorf("snapshot for project %s predates input capture, re-compute from a document", projectID)
	}
	return []byte(*row.Input), nil
}

func readStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no input: pipe a compute document or use --file")
	}
	return io.ReadAll(os.Stdin)
}
