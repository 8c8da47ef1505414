package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jgoulah/billscraper/internal/batch"
	"github.com/jgoulah/billscraper/internal/config"
	"github.com/jgoulah/billscraper/internal/export"
	"github.com/jgoulah/billscraper/internal/extractor"
	"github.com/spf13/cobra"
)

var (
	extractDir       string
	extractOut       string
	extractFormat    string
	extractNoExport  bool
	extractNoPreview bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract billing data from every PDF in a directory",
	Long: `Reads each PDF statement directly inside the input directory, extracts the
total electricity consumption and the tiered kWh rates, prints a preview table
and writes one export file.

Files that cannot be decoded or that carry no electricity data are reported
and skipped.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractDir, "dir", "d", "", "Directory containing the PDF statements (overrides input_dir)")
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Export file path (default is <dir>/extracted_electricity_data.<ext>)")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", "", "Export format: csv, xlsx or sqlite (default csv)")
	extractCmd.Flags().BoolVar(&extractNoExport, "no-export", false, "Only print the results, do not write an export file")
	extractCmd.Flags().BoolVar(&extractNoPreview, "no-preview", false, "Do not print the preview table")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyOverrides(extractDir, extractOut, extractFormat)

	opts := extractOptions{
		preview: cfg.GetPreview() && !extractNoPreview,
		export:  !extractNoExport,
	}
	return extract(cmd.Context(), cmd.OutOrStdout(), cfg, opts, logger)
}

type extractOptions struct {
	preview bool
	export  bool
}

// extract runs one batch over cfg.InputDir and writes the export artifact
func extract(ctx context.Context, out io.Writer, cfg *config.Config, opts extractOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	fmt.Fprintf(out, "=== Extract started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	if err := cfg.ValidateInputDir(); err != nil {
		return err
	}

	format, err := export.ParseFormat(cfg.GetFormat())
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrStartup, err)
	}

	agg := batch.New(extractor.NewPDF(logger), logger)
	result, err := agg.ProcessDirectory(ctx, cfg.InputDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Processed %d PDF files: %d extracted, %d unreadable, %d without electricity data\n",
		result.Attempted, result.Succeeded, result.DecodeFailures, result.NoData)

	// A partial batch must not replace an earlier export
	if err := ctx.Err(); err != nil || result.Cancelled {
		if err == nil {
			err = context.Canceled
		}
		fmt.Fprintln(out, "⚠ Extract interrupted, nothing was exported.")
		return fmt.Errorf("extract interrupted: %w", err)
	}

	if len(result.Records) == 0 {
		fmt.Fprintln(out, "No data was extracted.")
		return nil
	}

	if opts.preview {
		export.Preview(out, result.Records)
	}

	if !opts.export {
		fmt.Fprintf(out, "✓ Extracted %d records (export skipped)\n", len(result.Records))
		return nil
	}

	path := cfg.OutputPath
	if path == "" {
		path = export.DefaultPath(cfg.InputDir, format)
	}

	artifact, err := export.NewExporter(logger).Write(ctx, path, format, result.Records)
	if err != nil {
		return fmt.Errorf("exporting results: %w", err)
	}

	fmt.Fprintf(out, "✓ Exported %d records to %s\n", artifact.Rows, artifact.Path)
	if artifact.RunID != "" {
		fmt.Fprintf(out, "  Run ID: %s\n", artifact.RunID)
	}
	return nil
}
