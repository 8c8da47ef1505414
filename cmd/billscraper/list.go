package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jgoulah/billscraper/internal/database"
	"github.com/jgoulah/billscraper/internal/export"
	"github.com/jgoulah/billscraper/pkg/models"
	"github.com/spf13/cobra"
)

var listDB string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bills stored in a SQLite export",
	Long:  `Displays the bills written by "extract --format sqlite".`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listDB, "db", "", "SQLite export file (default is <input_dir>/extracted_electricity_data.db)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	path := listDB
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.InputDir == "" {
			return fmt.Errorf("no database given (use --db or set input_dir in the config file)")
		}
		path = export.DefaultPath(cfg.InputDir, export.FormatSQLite)
	}

	// database.New would create an empty file
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	db, err := database.New(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found")
		return nil
	}

	for _, run := range runs {
		bills, err := db.ListBills(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("listing bills for run %s: %w", run.ID, err)
		}
		printRun(cmd.OutOrStdout(), run, bills)
	}

	return nil
}

func printRun(w io.Writer, run database.Run, bills []models.MunicipalRecord) {
	fmt.Fprintf(w, "\nRun %s (%s):\n", run.ID, run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, "------------------------------------------------------------")
	fmt.Fprintf(w, "%-32s  %12s  %6s  %12s\n", "File", "kWh", "Tiers", "Charge")
	fmt.Fprintln(w, "------------------------------------------------------------")

	var total float64
	for _, bill := range bills {
		kwh := "-"
		if bill.TotalConsumptionKWh != nil {
			kwh = fmt.Sprintf("%.2f", *bill.TotalConsumptionKWh)
			total += *bill.TotalConsumptionKWh
		}
		charge := "-"
		if bill.TotalCharge != nil {
			charge = fmt.Sprintf("%.2f", *bill.TotalCharge)
		}
		fmt.Fprintf(w, "%-32s  %12s  %6d  %12s\n", bill.SourceIdentifier, kwh, len(bill.RateTiers), charge)
	}

	fmt.Fprintln(w, "------------------------------------------------------------")
	fmt.Fprintf(w, "Total: %.2f kWh (%d bills)\n", total, len(bills))
}
