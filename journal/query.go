package journal

import (
	"database/sql"
	"fmt"
)

const runColumns = `run_id, created, asof, name, configuration, trades, dates, samples, depth, precision,
	observation_mode, workers, cube_path, config, t0_ns, update_ns, fixing_ns, pricing_ns,
	total_ns, errors, status, message`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		rec                              RunRecord
		t0, update, fixing, pricing, tot int64
	)
	err := s.Scan(
		&rec.RunID,
		&rec.Created,
		&rec.AsOf,
		&rec.Name,
		&rec.Configuration,
		&rec.Trades,
		&rec.Dates,
		&rec.Samples,
		&rec.Depth,
		&rec.Precision,
		&rec.ObservationMode,
		&rec.Workers,
		&rec.CubePath,
		&rec.Config,
		&t0, &update, &fixing, &pricing, &tot,
		&rec.Errors,
		&rec.Status,
		&rec.Message,
	)
	if err != nil {
		return RunRecord{}, err
	}
	rec.T0, rec.Update, rec.Fixing, rec.Pricing, rec.Total = dur(t0), dur(update), dur(fixing), dur(pricing), dur(tot)
	return rec, nil
}

// GetRun returns a single run by id.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, fmt.Errorf("run %q not found", runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListErrorsByRunID returns a run's pricing errors by date, then sample.
func (j *SQLite) ListErrorsByRunID(runID string) ([]ErrorRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, trade_id, calculator, date, sample, message
		FROM pricing_errors
		WHERE run_id = ?
		ORDER BY date ASC, sample ASC, trade_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ErrorRecord
	for rows.Next() {
		var rec ErrorRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.TradeID,
			&rec.Calculator,
			&rec.Date,
			&rec.Sample,
			&rec.Message,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
