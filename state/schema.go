package state

const schemaVersion = 1

// The simhash band columns split the 64-bit fingerprint into four 16-bit
// slices. Any near-duplicate within Hamming distance 3 must share at least
// one band with the query, so band equality preselects candidates cheaply.
const schemaV1 = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE runs (
	run_id        TEXT PRIMARY KEY,
	pipeline_name TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	total_items   INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL
);

CREATE TABLE items (
	run_id     TEXT NOT NULL,
	item_index INTEGER NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (run_id, item_index)
);

CREATE TABLE hashes (
	run_id     TEXT NOT NULL,
	item_index INTEGER NOT NULL,
	field      TEXT NOT NULL,
	value      TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX idx_hashes_field_value ON hashes(field, value);
CREATE INDEX idx_hashes_run ON hashes(run_id);

CREATE TABLE simhashes (
	run_id     TEXT NOT NULL,
	item_index INTEGER NOT NULL,
	field      TEXT NOT NULL,
	value      INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	b0 INTEGER GENERATED ALWAYS AS (value & 0xFFFF) STORED,
	b1 INTEGER GENERATED ALWAYS AS ((value >> 16) & 0xFFFF) STORED,
	b2 INTEGER GENERATED ALWAYS AS ((value >> 32) & 0xFFFF) STORED,
	b3 INTEGER GENERATED ALWAYS AS ((value >> 48) & 0xFFFF) STORED
);
CREATE INDEX idx_simhashes_field ON simhashes(field);
CREATE INDEX idx_simhashes_b0 ON simhashes(field, b0);
CREATE INDEX idx_simhashes_b1 ON simhashes(field, b1);
CREATE INDEX idx_simhashes_b2 ON simhashes(field, b2);
CREATE INDEX idx_simhashes_b3 ON simhashes(field, b3);

CREATE TABLE embeddings (
	run_id     TEXT NOT NULL,
	item_index INTEGER NOT NULL,
	field      TEXT NOT NULL,
	value      BLOB NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX idx_embeddings_field ON embeddings(field);
`
