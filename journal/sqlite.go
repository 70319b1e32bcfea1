package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordRun inserts r, replacing an earlier record with the same run id.
func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, asof, name, configuration, trades, dates, samples, depth, precision,
		 observation_mode, workers, cube_path, config, t0_ns, update_ns, fixing_ns, pricing_ns,
		 total_ns, errors, status, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.AsOf.UTC(), r.Name, r.Configuration,
		r.Trades, r.Dates, r.Samples, r.Depth, r.Precision,
		r.ObservationMode, r.Workers, r.CubePath, r.Config,
		int64(r.T0), int64(r.Update), int64(r.Fixing), int64(r.Pricing), int64(r.Total),
		r.Errors, r.Status, r.Message,
	)
	return err
}

func (j *SQLite) RecordError(e ErrorRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO pricing_errors
		(run_id, trade_id, calculator, date, sample, message)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.TradeID, e.Calculator, e.Date.UTC(), e.Sample, e.Message,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func dur(ns int64) time.Duration { return time.Duration(ns) }
