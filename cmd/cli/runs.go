package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/primelio/cee-service/internal/database"
)

var (
	runsStatus string
	runsLimit  int
)

// runsCmd represents the runs command group
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect referential import runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List import runs",
	Example: `  ceectl runs list
  ceectl runs list --status failed`,
	RunE: runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show one import run with its error summary",
	Example: `  ceectl runs show imp_tz4a98xxat96iws9zmbrgj3a`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRunsShow,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd)

	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "Filter by status (pending, running, completed, failed)")
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum runs to list")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	runs, err := database.ListImportRuns(context.Background(), runsStatus, runsLimit, 0)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN\tSOURCE\tSTATUS\tROWS\tVALID\tERRORS\tCREATED")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.PublicID, r.Source, r.Status,
			intOrDash(r.TotalRows), intOrDash(r.ValidRows), intOrDash(r.ErrorCount),
			r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	run, err := database.GetImportRun(ctx, args[0])
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("unknown import run: %s", args[0])
	}

	out, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	summary, err := database.GetImportErrorSummary(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(summary) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ERROR TYPE\tSEVERITY\tCOUNT")
	for _, s := range summary {
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.ErrorType, s.Severity, s.Count)
	}
	w.Flush()
	return nil
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
