package state

var schema = []string{
	`
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_used  INTEGER NOT NULL
);`,
	`
CREATE TABLE IF NOT EXISTS results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	host        TEXT NOT NULL,
	port        INTEGER NOT NULL,
	started_at  INTEGER NOT NULL,
	success     INTEGER NOT NULL,
	latency_ms  REAL,
	down_mbits  REAL,
	up_mbits    REAL,
	errorcode   TEXT NOT NULL DEFAULT '',
	version     TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS results_started_at ON results (started_at);`,
}
