package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/billscraper/internal/batch"
	"github.com/spf13/cobra"
)

var scanDir string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Show the PDF statements extract would process",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanDir, "dir", "d", "", "Directory containing the PDF statements (overrides input_dir)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyOverrides(scanDir, "", "")

	if err := cfg.ValidateInputDir(); err != nil {
		return err
	}

	paths, err := batch.ListPDFs(cfg.InputDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintf(out, "No PDF files found in %s\n", cfg.InputDir)
		return nil
	}

	var total uint64
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(out, "%-40s  %10s\n", filepath.Base(path), "?")
			continue
		}
		size := uint64(info.Size())
		total += size
		fmt.Fprintf(out, "%-40s  %10s  modified %s\n", filepath.Base(path), humanize.Bytes(size), humanize.Time(info.ModTime()))
	}

	fmt.Fprintf(out, "%d PDF files, %s\n", len(paths), humanize.Bytes(total))
	return nil
}
