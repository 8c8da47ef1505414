package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jgoulah/billscraper/internal/extractor"
	"github.com/jgoulah/billscraper/internal/parser"
	"github.com/jgoulah/billscraper/pkg/models"
)

// Status is the outcome of one attempted statement
type Status string

const (
	StatusOK          Status = "ok"
	StatusDecodeError Status = "decode_error"
	StatusNoData      Status = "no_data"
)

// StartupError aborts a run before any statement is attempted
type StartupError struct {
	Dir string
	Err error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("input directory %q: %v", e.Dir, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// ItemOutcome records what happened to one entry
type ItemOutcome struct {
	Path   string
	Status Status
	Err    error
}

// AggregateResult is the outcome of one batch run
type AggregateResult struct {
	Records        []models.MunicipalRecord
	Attempted      int
	Succeeded      int
	DecodeFailures int
	NoData         int
	Outcomes       []ItemOutcome
	Cancelled      bool // Stopped before every entry was attempted
}

// Aggregator runs extraction, parsing and validation over a set of statements
type Aggregator struct {
	extractor extractor.TextExtractor
	logger    *slog.Logger
}

// New creates an Aggregator
func New(ext extractor.TextExtractor, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{extractor: ext, logger: logger}
}

// Process attempts every entry once, in order. Per-item failures are logged
// and counted, never returned. A cancelled context stops the run before the
// next entry.
func (a *Aggregator) Process(ctx context.Context, entries []string) AggregateResult {
	start := time.Now()
	result := AggregateResult{Records: []models.MunicipalRecord{}}

	for _, path := range entries {
		if err := ctx.Err(); err != nil {
			a.logger.Warn("batch cancelled", "remaining", len(entries)-result.Attempted, "error", err)
			result.Cancelled = true
			break
		}

		result.Attempted++
		id := filepath.Base(path)

		text, err := a.extractor.ExtractText(ctx, path)
		if err != nil {
			a.logger.Error("failed to process file", "file", id, "error", err)
			result.DecodeFailures++
			result.Outcomes = append(result.Outcomes, ItemOutcome{Path: path, Status: StatusDecodeError, Err: err})
			continue
		}

		record, err := parser.ParseRecord(id, text)
		if err != nil {
			a.logger.Warn("no relevant data found", "file", id)
			result.NoData++
			result.Outcomes = append(result.Outcomes, ItemOutcome{Path: path, Status: StatusNoData, Err: err})
			continue
		}

		a.logger.Info("processed file", "file", id, "tiers", len(record.RateTiers))
		result.Records = append(result.Records, record)
		result.Succeeded++
		result.Outcomes = append(result.Outcomes, ItemOutcome{Path: path, Status: StatusOK})
	}

	a.logger.Debug("batch finished",
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"decode_failures", result.DecodeFailures,
		"no_data", result.NoData,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}

// ProcessDirectory processes the PDF files directly inside dir
func (a *Aggregator) ProcessDirectory(ctx context.Context, dir string) (AggregateResult, error) {
	entries, err := ListPDFs(dir)
	if err != nil {
		return AggregateResult{}, err
	}
	return a.Process(ctx, entries), nil
}

// ListPDFs returns the paths of the regular entries in dir whose name ends
// in .pdf, case-insensitively, sorted by name. Subdirectories are not
// descended into.
func ListPDFs(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &StartupError{Dir: dir, Err: errors.New("not set")}
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &StartupError{Dir: dir, Err: err}
	}

	var paths []string
	for _, e := range dirEntries {
		if e.IsDir() || !IsPDF(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// IsPDF reports whether name carries a .pdf extension in any case
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
