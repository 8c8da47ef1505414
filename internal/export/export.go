package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/billscraper/pkg/models"
)

// Format selects the artifact written by Write
type Format string

const (
	FormatCSV    Format = "csv"
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
)

// DefaultBaseName is the artifact name used when no output path is given
const DefaultBaseName = "extracted_electricity_data"

// minTierColumns keeps the first three tier column pairs even when no record
// has that many tiers
const minTierColumns = 3

const dateLayout = "2006-01-02"

// ParseFormat accepts a format name in any case. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatSQLite, "db":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("unknown export format: %s (available: csv, xlsx, sqlite)", s)
	}
}

// Extension returns the file extension for the format, including the dot
func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return ".xlsx"
	case FormatSQLite:
		return ".db"
	default:
		return ".csv"
	}
}

// DefaultPath places the artifact inside the input directory
func DefaultPath(inputDir string, format Format) string {
	return filepath.Join(inputDir, DefaultBaseName+format.Extension())
}

// Artifact describes what Write produced
type Artifact struct {
	Path   string
	Format Format
	Rows   int
	RunID  string // sqlite only
}

// Exporter writes the aggregated records to one artifact
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates an Exporter
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// Write exports records to path in the given format. An existing file at
// path is replaced only once the new artifact is complete. The in-memory
// records are never modified.
func (e *Exporter) Write(ctx context.Context, path string, format Format, records []models.MunicipalRecord) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, fmt.Errorf("writing %s export: %w", format, err)
	}

	start := time.Now()
	artifact := Artifact{Path: path, Format: format, Rows: len(records)}

	var err error
	switch format {
	case FormatCSV:
		err = writeCSVFile(path, records)
	case FormatXLSX:
		err = writeXLSXFile(path, records)
	case FormatSQLite:
		artifact.RunID, err = writeSQLite(ctx, path, records)
	default:
		return Artifact{}, fmt.Errorf("unknown export format: %s", format)
	}
	if err != nil {
		e.logger.Error("export failed", "path", path, "format", string(format), "error", err)
		return Artifact{}, fmt.Errorf("writing %s export: %w", format, err)
	}

	e.logger.Info("export ok",
		"path", path,
		"format", string(format),
		"rows", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return artifact, nil
}

// TierColumns returns how many tier column pairs a table of records needs
func TierColumns(records []models.MunicipalRecord) int {
	n := minTierColumns
	for _, r := range records {
		if len(r.RateTiers) > n {
			n = len(r.RateTiers)
		}
	}
	return n
}

// Header returns the flattened column names for tiers tier column pairs
func Header(tiers int) []string {
	header := []string{
		"filename",
		"start_date",
		"end_date",
		"total_consumption_kwh",
		"daily_average_kwh",
		"total_charge",
	}
	for i := 1; i <= tiers; i++ {
		header = append(header, fmt.Sprintf("tier_%d_kwh", i), fmt.Sprintf("tier_%d_rate", i))
	}
	return header
}

// Rows flattens records into one string row per record, in order. Absent
// values are empty strings.
func Rows(records []models.MunicipalRecord) (header []string, rows [][]string) {
	tiers := TierColumns(records)
	header = Header(tiers)
	rows = make([][]string, 0, len(records))

	for _, r := range records {
		row := make([]string, 0, len(header))
		row = append(row, r.SourceIdentifier)
		if r.Period != nil {
			row = append(row, r.Period.Start.Format(dateLayout), r.Period.End.Format(dateLayout))
		} else {
			row = append(row, "", "")
		}
		row = append(row,
			formatOptional(r.TotalConsumptionKWh),
			formatOptional(r.DailyAverageKWh),
			formatOptional(r.TotalCharge),
		)
		for i := 0; i < tiers; i++ {
			if i < len(r.RateTiers) {
				row = append(row, FormatFloat(r.RateTiers[i].KWh), FormatFloat(r.RateTiers[i].RatePerKWh))
			} else {
				row = append(row, "", "")
			}
		}
		rows = append(rows, row)
	}
	return header, rows
}

// FormatFloat renders v in the shortest form that parses back to v
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v)
}
