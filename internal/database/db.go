package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/billscraper/pkg/models"
	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// Run is one extraction run stored in the database
type Run struct {
	ID        string
	CreatedAt time.Time
	Bills     int
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		bill_count INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS bills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		filename TEXT NOT NULL,
		start_date TEXT,
		end_date TEXT,
		total_consumption_kwh REAL,
		daily_average_kwh REAL,
		total_charge REAL,
		UNIQUE(run_id, position)
	);
	CREATE TABLE IF NOT EXISTS rate_tiers (
		bill_id INTEGER NOT NULL REFERENCES bills(id),
		position INTEGER NOT NULL,
		kwh REAL NOT NULL,
		rate REAL NOT NULL,
		PRIMARY KEY (bill_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_bills_run ON bills(run_id);
	CREATE INDEX IF NOT EXISTS idx_bills_filename ON bills(filename);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// InsertRun stores a run and its bills in one transaction. Bills keep the
// order they are given in.
func (db *DB) InsertRun(ctx context.Context, run Run, bills []models.MunicipalRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := run.CreatedAt.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, bill_count) VALUES (?, ?, ?)`,
		run.ID, createdAt, len(bills),
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, bill := range bills {
		var startDate, endDate sql.NullString
		if bill.Period != nil {
			startDate = sql.NullString{String: bill.Period.Start.Format(dateLayout), Valid: true}
			endDate = sql.NullString{String: bill.Period.End.Format(dateLayout), Valid: true}
		}

		res, err := tx.ExecContext(ctx, `
		INSERT INTO bills (run_id, position, filename, start_date, end_date, total_consumption_kwh, daily_average_kwh, total_charge)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID, i, bill.SourceIdentifier, startDate, endDate,
			nullFloat(bill.TotalConsumptionKWh), nullFloat(bill.DailyAverageKWh), nullFloat(bill.TotalCharge),
		)
		if err != nil {
			return fmt.Errorf("inserting bill %s: %w", bill.SourceIdentifier, err)
		}

		billID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading bill id: %w", err)
		}

		for j, tier := range bill.RateTiers {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO rate_tiers (bill_id, position, kwh, rate) VALUES (?, ?, ?, ?)`,
				billID, j, tier.KWh, tier.RatePerKWh,
			); err != nil {
				return fmt.Errorf("inserting rate tier %d of %s: %w", j+1, bill.SourceIdentifier, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

// ListRuns retrieves all runs, newest first
func (db *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, created_at, bill_count FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		var run Run
		var createdAt string
		if err := rows.Scan(&run.ID, &createdAt, &run.Bills); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, run)
	}

	return results, rows.Err()
}

// ListBills retrieves the bills of one run in their original order
func (db *DB) ListBills(ctx context.Context, runID string) ([]models.MunicipalRecord, error) {
	query := `
	SELECT id, filename, start_date, end_date, total_consumption_kwh, daily_average_kwh, total_charge
	FROM bills
	WHERE run_id = ?
	ORDER BY position
	`

	rows, err := db.conn.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying bills: %w", err)
	}
	defer rows.Close()

	var ids []int64
	var results []models.MunicipalRecord
	for rows.Next() {
		var id int64
		var bill models.MunicipalRecord
		var startDate, endDate sql.NullString
		var consumption, dailyAverage, totalCharge sql.NullFloat64

		if err := rows.Scan(&id, &bill.SourceIdentifier, &startDate, &endDate, &consumption, &dailyAverage, &totalCharge); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		if startDate.Valid && endDate.Valid {
			start, err := time.Parse(dateLayout, startDate.String)
			if err != nil {
				return nil, fmt.Errorf("parsing start_date: %w", err)
			}
			end, err := time.Parse(dateLayout, endDate.String)
			if err != nil {
				return nil, fmt.Errorf("parsing end_date: %w", err)
			}
			bill.Period = &models.BillingPeriod{Start: start, End: end}
		}
		bill.TotalConsumptionKWh = floatPtr(consumption)
		bill.DailyAverageKWh = floatPtr(dailyAverage)
		bill.TotalCharge = floatPtr(totalCharge)

		ids = append(ids, id)
		results = append(results, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		tiers, err := db.listTiers(ctx, id)
		if err != nil {
			return nil, err
		}
		results[i].RateTiers = tiers
	}

	return results, nil
}

func (db *DB) listTiers(ctx context.Context, billID int64) ([]models.RateTier, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT kwh, rate FROM rate_tiers WHERE bill_id = ? ORDER BY position`, billID)
	if err != nil {
		return nil, fmt.Errorf("querying rate tiers: %w", err)
	}
	defer rows.Close()

	tiers := []models.RateTier{}
	for rows.Next() {
		var tier models.RateTier
		if err := rows.Scan(&tier.KWh, &tier.RatePerKWh); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		tiers = append(tiers, tier)
	}

	return tiers, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
