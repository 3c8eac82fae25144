package pending

// schemaVersion is the current schema version. Increment when adding migrations.
const schemaVersion = 2

// migrations maps version numbers to the SQL that brings the schema from
// (version-1) to (version).
var migrations = map[int]string{
	1: `
CREATE TABLE IF NOT EXISTS edits (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp               INTEGER NOT NULL,
	provider                TEXT    NOT NULL,
	file_path               TEXT    NOT NULL,
	file_name               TEXT    NOT NULL,
	model                   TEXT    NOT NULL DEFAULT '',
	content                 TEXT    NOT NULL,
	content_hash            TEXT    NOT NULL,
	content_hash_normalized TEXT    NOT NULL,
	edit_type               TEXT    NOT NULL,
	old_content             TEXT,
	session_id              TEXT,
	tool_use_id             TEXT,
	status                  TEXT    NOT NULL DEFAULT 'pending',
	matched_commit          TEXT,
	matched_at              INTEGER
);

CREATE TABLE IF NOT EXISTS lines (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	edit_id         INTEGER NOT NULL REFERENCES edits(id) ON DELETE CASCADE,
	content         TEXT    NOT NULL,
	hash            TEXT    NOT NULL,
	hash_normalized TEXT    NOT NULL,
	line_number     INTEGER,
	context_before  TEXT,
	context_after   TEXT
);

CREATE INDEX IF NOT EXISTS idx_lines_hash ON lines(hash);
CREATE INDEX IF NOT EXISTS idx_lines_hash_normalized ON lines(hash_normalized);
CREATE INDEX IF NOT EXISTS idx_lines_edit ON lines(edit_id);
CREATE INDEX IF NOT EXISTS idx_edits_status ON edits(status);
`,
	2: `
CREATE INDEX IF NOT EXISTS idx_edits_file_path ON edits(file_path);
CREATE INDEX IF NOT EXISTS idx_edits_timestamp ON edits(timestamp);
`,
}
