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
	catalogFilter  string
	catalogShowAll bool
	catalogLimit   int
)

// catalogCmd represents the catalog command group
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the operation referential",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog products",
	Example: `  ceectl catalog list
  ceectl catalog list --code BAT-EQ
  ceectl catalog list --all`,
	RunE: runCatalogList,
}

var catalogShowCmd = &cobra.Command{
	Use:     "show <code>",
	Short:   "Show one catalog product",
	Example: `  ceectl catalog show BAT-EQ-127`,
	Args:    cobra.ExactArgs(1),
	RunE:    runCatalogShow,
}

var catalogDelegatesCmd = &cobra.Command{
	Use:   "delegates",
	Short: "List delegates and their purchase prices",
	RunE:  runCatalogDelegates,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogShowCmd, catalogDelegatesCmd)

	catalogListCmd.Flags().StringVar(&catalogFilter, "code", "", "Filter by code substring")
	catalogListCmd.Flags().BoolVar(&catalogShowAll, "all", false, "Include inactive entries")
	catalogListCmd.Flags().IntVar(&catalogLimit, "limit", 100, "Maximum entries to list")
	catalogDelegatesCmd.Flags().BoolVar(&catalogShowAll, "all", false, "Include inactive delegates")
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	products, err := database.ListCatalogProducts(ctx, catalogFilter, !catalogShowAll, catalogLimit, 0)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CODE\tLABEL\tMULTIPLIER\tBUILDING TYPES\tACTIVE")
	for i := range products {
		p := &products[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\n", p.Code, p.Label, p.MultiplierKey, len(p.KwhCumac), p.Active)
	}
	w.Flush()

	fmt.Printf("\n%d products\n", len(products))
	return nil
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	product, err := database.GetCatalogProductByCode(context.Background(), args[0])
	if err != nil {
		return err
	}
	if product == nil {
		return fmt.Errorf("unknown operation code: %s", args[0])
	}

	out, err := json.MarshalIndent(product, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runCatalogDelegates(cmd *cobra.Command, args []string) error {
	delegates, err := database.ListDelegates(context.Background(), !catalogShowAll)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tEUR/MWH\tACTIVE")
	for i := range delegates {
		d := &delegates[i]
		fmt.Fprintf(w, "%s\t%.2f\t%t\n", d.Name, d.PriceEurPerMwh, d.Active)
	}
	w.Flush()
	return nil
}
