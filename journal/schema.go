// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	created DATETIME NOT NULL,
	first_bar DATETIME NOT NULL,
	last_bar DATETIME NOT NULL,
	bars INTEGER NOT NULL,
	scanned INTEGER NOT NULL,
	atr_period INTEGER NOT NULL,
	atr_multiplier REAL NOT NULL,
	lookback INTEGER NOT NULL,
	opened_bullish INTEGER NOT NULL,
	opened_bearish INTEGER NOT NULL,
	inversions INTEGER NOT NULL,
	open_bullish INTEGER NOT NULL,
	open_bearish INTEGER NOT NULL,
	long_signals INTEGER NOT NULL,
	short_signals INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_instrument ON runs(instrument, created);

CREATE TABLE IF NOT EXISTS inversions (
	run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	gap_id INTEGER NOT NULL,
	instrument TEXT NOT NULL,
	origin TEXT NOT NULL,
	low REAL NOT NULL,
	high REAL NOT NULL,
	mid REAL NOT NULL,
	left_time DATETIME NOT NULL,
	right_time DATETIME NOT NULL,
	created_index INTEGER NOT NULL,
	inversion_time DATETIME NOT NULL,
	inversion_index INTEGER NOT NULL,
	PRIMARY KEY (run_id, gap_id)
);

CREATE TABLE IF NOT EXISTS engine_state (
	instrument TEXT PRIMARY KEY,
	updated DATETIME NOT NULL,
	next_index INTEGER NOT NULL,
	last_time DATETIME NOT NULL,
	state TEXT NOT NULL
);
`
