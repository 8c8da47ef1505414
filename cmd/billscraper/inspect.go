package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jgoulah/billscraper/internal/extractor"
	"github.com/jgoulah/billscraper/internal/parser"
	"github.com/jgoulah/billscraper/pkg/models"
	"github.com/spf13/cobra"
)

var inspectRaw bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show what is extracted from a single PDF statement",
	Long:  `Extracts the text of one PDF and prints every recognised billing field.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "Also print the extracted text")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	text, err := extractor.NewPDF(logger).ExtractText(cmd.Context(), path)
	if err != nil {
		return err
	}

	if inspectRaw {
		fmt.Fprintln(out, "=== EXTRACTED TEXT ===")
		fmt.Fprint(out, text)
		fmt.Fprintln(out, "======================")
	}

	record, err := parser.ParseRecord(filepath.Base(path), text)
	if err != nil {
		fmt.Fprintf(out, "⚠ %v\n", err)
		return nil
	}

	printRecord(out, record)
	return nil
}

func printRecord(w io.Writer, r models.MunicipalRecord) {
	fmt.Fprintf(w, "File:              %s\n", r.SourceIdentifier)
	if r.Period != nil {
		fmt.Fprintf(w, "Period:            %s to %s\n", r.Period.Start.Format("2006-01-02"), r.Period.End.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "Total consumption: %s\n", optionalKWh(r.TotalConsumptionKWh))
	if r.DailyAverageKWh != nil {
		fmt.Fprintf(w, "Daily average:     %s\n", optionalKWh(r.DailyAverageKWh))
	}
	if r.TotalCharge != nil {
		fmt.Fprintf(w, "Total charge:      R %.2f\n", *r.TotalCharge)
	}

	if len(r.RateTiers) == 0 {
		fmt.Fprintln(w, "Rate tiers:        none")
		return
	}
	fmt.Fprintf(w, "Rate tiers:        %d (%.4f kWh)\n", len(r.RateTiers), r.TieredKWh())
	for i, tier := range r.RateTiers {
		fmt.Fprintf(w, "  (%d) %12.4f kWh @ R %.4f\n", i+1, tier.KWh, tier.RatePerKWh)
	}
}

func optionalKWh(v *float64) string {
	if v == nil {
		return "not found"
	}
	return fmt.Sprintf("%.3f kWh", *v)
}
