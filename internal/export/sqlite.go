package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/billscraper/internal/database"
	"github.com/jgoulah/billscraper/pkg/models"
)

// writeSQLite replaces the database at path with one holding a single run
// and returns the run id
func writeSQLite(ctx context.Context, path string, records []models.MunicipalRecord) (string, error) {
	var runID string
	err := replaceFile(path, func(f *os.File) error {
		// A fresh empty file opens as an empty database
		if err := f.Close(); err != nil {
			return err
		}
		id, err := storeRun(ctx, f.Name(), records)
		runID = id
		return err
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

func storeRun(ctx context.Context, path string, records []models.MunicipalRecord) (string, error) {
	db, err := database.New(path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	run := database.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Bills:     len(records),
	}
	if err := db.InsertRun(ctx, run, records); err != nil {
		return "", fmt.Errorf("storing run %s: %w", run.ID, err)
	}
	return run.ID, nil
}
