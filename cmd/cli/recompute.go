package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/primelio/cee-service/internal/jobs"
)

var (
	recomputeAll      bool
	recomputeCategory string
)

// recomputeCmd represents the recompute command
var recomputeCmd = &cobra.Command{
	Use:   "recompute [projectId]",
	Short: "Replay stored snapshots against the current referential",
	Long: `Recompute persisted project snapshots by replaying their stored compute
documents through the engine. Snapshots whose figures are unchanged within the
configured tolerance are left untouched.

Use --all to recompute every stored snapshot, optionally narrowed to one
category.`,
	Example: `  ceectl recompute PRJ-000042
  ceectl recompute --all
  ceectl recompute --all --category isolation`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecompute,
}

func init() {
	rootCmd.AddCommand(recomputeCmd)

	recomputeCmd.Flags().BoolVar(&recomputeAll, "all", false, "Recompute every stored snapshot")
	recomputeCmd.Flags().StringVar(&recomputeCategory, "category", "", "Restrict --all to one category (isolation or eclairage)")
}

func runRecompute(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	svc, _, cleanup, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := jobs.DefaultRecomputeOptions()
	opts.Tolerance = cfg.Engine.ChangeTolerance
	if cfg.Worker.RecomputeWorkers > 0 {
		opts.Concurrency = cfg.Worker.RecomputeWorkers
	}

	if recomputeAll {
		stats, err := jobs.RecomputeAll(ctx, svc, recomputeCategory, opts)
		if err != nil {
			return err
		}
		logger.Info().
			Int("total", stats.Total).
			Int("changed", stats.Changed).
			Int("unchanged", stats.Unchanged).
			Int("skipped", stats.Skipped).
			Int("failed", stats.Failed).
			Msg("Recompute finished")
		if stats.Failed > 0 {
			return fmt.Errorf("%d snapshots failed to recompute", stats.Failed)
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("either specify a projectId or use --all")
	}

	result, err := jobs.RecomputeProject(ctx, svc, args[0], opts)
	if err != nil {
		return err
	}
	if result.Changed {
		logger.Info().Str("project_id", result.ProjectID).Msg("Snapshot rewritten")
	} else {
		logger.Info().Str("project_id", result.ProjectID).Msg("Snapshot unchanged")
	}
	return nil
}
