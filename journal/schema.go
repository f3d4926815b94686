package journal

const Schema = `
CREATE TABLE IF NOT EXISTS operations (
	id             TEXT PRIMARY KEY,
	event_id       TEXT NOT NULL,
	kind           TEXT NOT NULL,
	user_id        TEXT NOT NULL,
	asset          TEXT NOT NULL,
	amount         TEXT NOT NULL,
	value          TEXT NOT NULL,
	balance_before TEXT NOT NULL,
	balance_after  TEXT NOT NULL,
	total          TEXT NOT NULL,
	at             TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_user ON operations (user_id, asset);
CREATE INDEX IF NOT EXISTS idx_operations_at ON operations (at);

CREATE TABLE IF NOT EXISTS source_updates (
	id              TEXT PRIMARY KEY,
	event_id        TEXT NOT NULL,
	asset           TEXT NOT NULL,
	source_name     TEXT NOT NULL,
	native_decimals INTEGER NOT NULL,
	caller          TEXT NOT NULL,
	at              TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	at    TIMESTAMP NOT NULL,
	total TEXT NOT NULL
);
`
