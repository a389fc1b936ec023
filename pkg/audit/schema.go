package audit

// SchemaVersion is the current audit database schema version.
const SchemaVersion = 1

// schema creates the audit tables and indexes. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS scans (
	scan_id      TEXT PRIMARY KEY,
	ruleset      TEXT NOT NULL,
	input_hash   TEXT NOT NULL,
	input_length INTEGER NOT NULL,
	blocked      INTEGER NOT NULL,
	rule_count   INTEGER NOT NULL,
	outcomes     TEXT NOT NULL,
	duration_ms  INTEGER NOT NULL,
	created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
CREATE INDEX IF NOT EXISTS idx_scans_blocked ON scans(blocked);
CREATE INDEX IF NOT EXISTS idx_scans_input_hash ON scans(input_hash);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

const getSchemaVersion = `SELECT MAX(version) FROM schema_version`
