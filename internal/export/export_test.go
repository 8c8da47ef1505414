package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/billscraper/internal/database"
	"github.com/jgoulah/billscraper/pkg/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

func sampleRecords() []models.MunicipalRecord {
	return []models.MunicipalRecord{
		{
			SourceIdentifier:    "bill_jan_2025.pdf",
			TotalConsumptionKWh: floatPtr(889),
			DailyAverageKWh:     floatPtr(27.781),
			TotalCharge:         floatPtr(2951.05),
			Period: &models.BillingPeriod{
				Start: time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 2, 18, 0, 0, 0, 0, time.UTC),
			},
			RateTiers: []models.RateTier{
				{KWh: 631.233, RatePerKWh: 2.987},
				{KWh: 257.767, RatePerKWh: 4.1338},
			},
		},
		{
			SourceIdentifier: "tiers_only.pdf",
			RateTiers: []models.RateTier{
				{KWh: 1, RatePerKWh: 1.5},
				{KWh: 2, RatePerKWh: 2.5},
				{KWh: 3, RatePerKWh: 3.5},
				{KWh: 4, RatePerKWh: 4.5},
			},
		},
		{
			SourceIdentifier:    "consumption_only.pdf",
			TotalConsumptionKWh: floatPtr(150.75),
			RateTiers:           []models.RateTier{},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatCSV},
		{in: "csv", want: FormatCSV},
		{in: "XLSX", want: FormatXLSX},
		{in: " sqlite ", want: FormatSQLite},
		{in: "db", want: FormatSQLite},
		{in: "json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("bills", "extracted_electricity_data.csv"), DefaultPath("bills", FormatCSV))
	assert.Equal(t, filepath.Join("bills", "extracted_electricity_data.xlsx"), DefaultPath("bills", FormatXLSX))
	assert.Equal(t, filepath.Join("bills", "extracted_electricity_data.db"), DefaultPath("bills", FormatSQLite))
}

func TestHeaderMinimumTiers(t *testing.T) {
	header, rows := Rows(nil)
	assert.Empty(t, rows)
	assert.Equal(t, []string{
		"filename", "start_date", "end_date",
		"total_consumption_kwh", "daily_average_kwh", "total_charge",
		"tier_1_kwh", "tier_1_rate", "tier_2_kwh", "tier_2_rate", "tier_3_kwh", "tier_3_rate",
	}, header)
}

func TestRows(t *testing.T) {
	header, rows := Rows(sampleRecords())

	require.Len(t, header, 6+2*4)
	assert.Equal(t, "tier_4_rate", header[len(header)-1])
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"bill_jan_2025.pdf", "2025-01-18", "2025-02-18", "889", "27.781", "2951.05",
		"631.233", "2.987", "257.767", "4.1338", "", "", "", "",
	}, rows[0])
	assert.Equal(t, []string{
		"tiers_only.pdf", "", "", "", "", "",
		"1", "1.5", "2", "2.5", "3", "3.5", "4", "4.5",
	}, rows[1])
	assert.Equal(t, []string{
		"consumption_only.pdf", "", "", "150.75", "", "",
		"", "", "", "", "", "", "", "",
	}, rows[2])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	got, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	header, rows := Rows(sampleRecords())
	require.Len(t, got, 4)
	assert.Equal(t, header, got[0])
	assert.Equal(t, rows, got[1:])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "filename,start_date,end_date"))
}

func TestBuildWorkbook(t *testing.T) {
	f, err := BuildWorkbook(sampleRecords())
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, got, 4)

	header, _ := Rows(sampleRecords())
	assert.Equal(t, header, got[0])
	assert.Equal(t, "bill_jan_2025.pdf", got[1][0])
	assert.Equal(t, "2025-01-18", got[1][1])
	assert.Equal(t, "889", got[1][3])
	assert.Equal(t, "4.1338", got[1][9])
	assert.Equal(t, "4.5", got[2][13])

	// Trailing blank cells are not returned
	assert.Len(t, got[3], 4)
	assert.Equal(t, "150.75", got[3][3])
}

func TestExporterWrite(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		artifact, err := NewExporter(logger).Write(ctx, path, FormatCSV, sampleRecords())
		require.NoError(t, err)
		assert.Equal(t, 3, artifact.Rows)
		assert.Empty(t, artifact.RunID)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "bill_jan_2025.pdf,2025-01-18,2025-02-18,889,27.781,2951.05")
	})

	t.Run("xlsx", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.xlsx")
		_, err := NewExporter(logger).Write(ctx, path, FormatXLSX, sampleRecords())
		require.NoError(t, err)

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(sheetName)
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.db")
		exp := NewExporter(logger)

		first, err := exp.Write(ctx, path, FormatSQLite, sampleRecords()[:1])
		require.NoError(t, err)
		require.NotEmpty(t, first.RunID)

		// A second run replaces the first
		second, err := exp.Write(ctx, path, FormatSQLite, sampleRecords())
		require.NoError(t, err)
		assert.NotEqual(t, first.RunID, second.RunID)

		db, err := database.New(path)
		require.NoError(t, err)
		defer db.Close()

		runs, err := db.ListRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, second.RunID, runs[0].ID)
		assert.Equal(t, 3, runs[0].Bills)

		bills, err := db.ListBills(ctx, second.RunID)
		require.NoError(t, err)
		assert.Equal(t, sampleRecords(), bills)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := NewExporter(logger).Write(ctx, filepath.Join(t.TempDir(), "out"), Format("json"), nil)
		assert.Error(t, err)
	})

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.csv")
		_, err := NewExporter(logger).Write(ctx, path, FormatCSV, sampleRecords())
		assert.Error(t, err)
	})
}

func TestPreview(t *testing.T) {
	var buf bytes.Buffer
	Preview(&buf, sampleRecords())

	out := buf.String()
	assert.Contains(t, out, "filename")
	assert.Contains(t, out, "tier_4_rate")
	assert.Contains(t, out, "bill_jan_2025.pdf")
	assert.Contains(t, out, "2951.05")
}

func TestExporterWriteCancelledKeepsPreviousArtifact(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, format := range []Format{FormatCSV, FormatXLSX, FormatSQLite} {
		t.Run(string(format), func(t *testing.T) {
			dir := t.TempDir()
			path := DefaultPath(dir, format)
			exp := NewExporter(logger)

			first, err := exp.Write(context.Background(), path, format, sampleRecords())
			require.NoError(t, err)
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err = exp.Write(ctx, path, format, sampleRecords()[:1])
			assert.ErrorIs(t, err, context.Canceled)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1)

			if format == FormatSQLite {
				db, err := database.New(path)
				require.NoError(t, err)
				defer db.Close()

				runs, err := db.ListRuns(context.Background())
				require.NoError(t, err)
				require.Len(t, runs, 1)
				assert.Equal(t, first.RunID, runs[0].ID)
			}
		})
	}
}

func TestReplaceFileFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0644))

	err := replaceFile(path, func(f *os.File) error {
		_, _ = f.WriteString("partial")
		return errors.New("disk full")
	})
	assert.EqualError(t, err, "disk full")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReplaceFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0600))

	require.NoError(t, replaceFile(path, func(f *os.File) error {
		_, err := f.WriteString("fresh")
		return err
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestBuildWorkbookInfiniteValuesStayText(t *testing.T) {
	records := []models.MunicipalRecord{{
		SourceIdentifier:    "huge.pdf",
		TotalConsumptionKWh: floatPtr(math.Inf(1)),
		RateTiers:           []models.RateTier{{KWh: 1, RatePerKWh: 2}},
	}}

	f, err := BuildWorkbook(records)
	require.NoError(t, err)
	defer f.Close()

	cellType, err := f.GetCellType(sheetName, "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeNumber, cellType)

	value, err := f.GetCellValue(sheetName, "D2")
	require.NoError(t, err)
	assert.Equal(t, "+Inf", value)

	value, err = f.GetCellValue(sheetName, "G2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}
