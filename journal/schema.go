package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	asof DATETIME NOT NULL,
	name TEXT NOT NULL,
	configuration TEXT NOT NULL,
	trades INTEGER NOT NULL,
	dates INTEGER NOT NULL,
	samples INTEGER NOT NULL,
	depth INTEGER NOT NULL,
	precision TEXT NOT NULL,
	observation_mode TEXT NOT NULL,
	workers INTEGER NOT NULL,
	cube_path TEXT NOT NULL,
	config BLOB,
	t0_ns INTEGER NOT NULL,
	update_ns INTEGER NOT NULL,
	fixing_ns INTEGER NOT NULL,
	pricing_ns INTEGER NOT NULL,
	total_ns INTEGER NOT NULL,
	errors INTEGER NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pricing_errors (
	run_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	calculator TEXT NOT NULL,
	date DATETIME NOT NULL,
	sample INTEGER NOT NULL,
	message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created);
CREATE INDEX IF NOT EXISTS idx_pricing_errors_run ON pricing_errors(run_id);
`
