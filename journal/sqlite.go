package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/ifvg/fvg"
)

type SQLite struct {
	db *sqlx.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordRun stores the run and its inversions in one transaction.
func (j *SQLite) RecordRun(ctx context.Context, run Run, inversions []fvg.Gap) error {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs
		(run_id, instrument, created, first_bar, last_bar, bars, scanned,
		 atr_period, atr_multiplier, lookback,
		 opened_bullish, opened_bearish, inversions, open_bullish, open_bearish,
		 long_signals, short_signals)
		VALUES
		(:run_id, :instrument, :created, :first_bar, :last_bar, :bars, :scanned,
		 :atr_period, :atr_multiplier, :lookback,
		 :opened_bullish, :opened_bearish, :inversions, :open_bullish, :open_bearish,
		 :long_signals, :short_signals)`, run)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	for _, g := range inversions {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO inversions
			(run_id, gap_id, instrument, origin, low, high, mid,
			 left_time, right_time, created_index, inversion_time, inversion_index)
			VALUES
			(:run_id, :gap_id, :instrument, :origin, :low, :high, :mid,
			 :left_time, :right_time, :created_index, :inversion_time, :inversion_index)`,
			newInversionRecord(run, g))
		if err != nil {
			return fmt.Errorf("insert inversion %d of run %s: %w", g.ID, run.RunID, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a single run by id.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	var run Run
	err := j.db.GetContext(ctx, &run, `SELECT * FROM runs WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %q: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns runs oldest first, all instruments when instrument is
// empty.
func (j *SQLite) ListRuns(ctx context.Context, instrument string) ([]Run, error) {
	var runs []Run
	var err error
	if instrument == "" {
		err = j.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY created, run_id`)
	} else {
		err = j.db.SelectContext(ctx, &runs,
			`SELECT * FROM runs WHERE instrument = ? ORDER BY created, run_id`, instrument)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ListInversions returns the inversions of a run in inversion order.
func (j *SQLite) ListInversions(ctx context.Context, runID string) ([]InversionRecord, error) {
	var recs []InversionRecord
	err := j.db.SelectContext(ctx, &recs, `
		SELECT * FROM inversions
		WHERE run_id = ?
		ORDER BY inversion_index, gap_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list inversions of %s: %w", runID, err)
	}
	return recs, nil
}

// SaveState stores the engine state of an instrument, replacing any
// previous one.
func (j *SQLite) SaveState(ctx context.Context, instrument string, st fvg.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO engine_state (instrument, updated, next_index, last_time, state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(instrument) DO UPDATE SET
			updated = excluded.updated,
			next_index = excluded.next_index,
			last_time = excluded.last_time,
			state = excluded.state`,
		instrument, time.Now().UTC(), st.NextIndex, st.LastTime.UTC(), string(data))
	if err != nil {
		return fmt.Errorf("save state of %s: %w", instrument, err)
	}
	return nil
}

// LoadState returns the stored engine state of an instrument.
func (j *SQLite) LoadState(ctx context.Context, instrument string) (fvg.State, error) {
	var data string
	err := j.db.QueryRowxContext(ctx,
		`SELECT state FROM engine_state WHERE instrument = ?`, instrument).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fvg.State{}, fmt.Errorf("state of %q: %w", instrument, ErrNotFound)
	}
	if err != nil {
		return fvg.State{}, fmt.Errorf("load state of %s: %w", instrument, err)
	}

	var st fvg.State
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return fvg.State{}, fmt.Errorf("decode state of %s: %w", instrument, err)
	}
	return st, nil
}

// DeleteState forgets the stored engine state of an instrument.
func (j *SQLite) DeleteState(ctx context.Context, instrument string) error {
	_, err := j.db.ExecContext(ctx, `DELETE FROM engine_state WHERE instrument = ?`, instrument)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
