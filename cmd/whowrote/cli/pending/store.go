// Package pending persists captured AI edits until a commit consumes them.
//
// The store is a per-repository SQLite database at .whowrote/pending.db with
// two tables: edits (one row per captured edit) and lines (one row per
// hashed line). Every operation takes an explicit *Store; switching
// repositories means opening another one.
package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/whowrote/cli/cmd/whowrote/cli/paths"
)

// Store is an open pending-edit database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at dbPath and brings its
// schema up to date.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening pending store: %w", err)
	}
	// Hooks from several editors can race on the same file; one connection
	// per process keeps SQLite locking simple.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenForRepo opens the store belonging to a repository root.
func OpenForRepo(root string) (*Store, error) {
	return Open(paths.PendingDBPath(root))
}

// Locate finds the repository that owns start (a file or directory) and
// opens its store. Returns paths.ErrNoDataDir when start is not inside a
// tracked repository.
func Locate(start string) (*Store, string, error) {
	root, err := paths.FindDataRoot(start)
	if err != nil {
		return nil, "", err
	}
	s, err := OpenForRepo(root)
	if err != nil {
		return nil, "", err
	}
	return s, root, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing pending store: %w", err)
	}
	return nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for v := current + 1; v <= schemaVersion; v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", v, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", v, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)", v, time.Now().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", v, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v, err)
		}
	}
	return nil
}

// SchemaVersion returns the applied schema version.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// InsertEdit stores an edit and all of its lines in a single transaction and
// returns the new edit ID. Either everything is written or nothing is.
func (s *Store) InsertEdit(ctx context.Context, e *CapturedEdit) (id int64, err error) {
	if e == nil || len(e.Lines) == 0 {
		return 0, errors.New("edit has no lines")
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO edits
		(timestamp, provider, file_path, file_name, model, content, content_hash,
		 content_hash_normalized, edit_type, old_content, session_id, tool_use_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UnixMilli(), e.Provider, e.FilePath, path.Base(e.FilePath), e.Model,
		e.Content, e.ContentHash, e.ContentHashNormalized, string(e.EditType),
		nullString(e.OldContent), nullString(e.SessionID), nullString(e.ToolUseID),
		string(StatusPending))
	if err != nil {
		return 0, fmt.Errorf("inserting edit: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading edit id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lines
		(edit_id, content, hash, hash_normalized, line_number, context_before, context_after)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing line insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range e.Lines {
		var lineNo any
		if l.LineNumber > 0 {
			lineNo = l.LineNumber
		}
		if _, err = stmt.ExecContext(ctx, id, l.Content, l.Hash, l.HashNormalized,
			lineNo, nullString(l.ContextBefore), nullString(l.ContextAfter)); err != nil {
			return 0, fmt.Errorf("inserting line: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	e.ID = id
	e.Timestamp = ts
	e.Status = StatusPending
	return id, nil
}

// lookupQuery ranks pending edits containing a line with the given hash:
// same path first, then same file name, then anything; newest first.
const lookupQuery = `SELECT e.id, e.provider, e.model, e.file_path, e.timestamp,
		CASE WHEN e.file_path = ? THEN 0 WHEN e.file_name = ? THEN 1 ELSE 2 END AS rank
	FROM lines l JOIN edits e ON e.id = l.edit_id
	WHERE l.%s = ? AND e.status = 'pending'
	GROUP BY e.id
	ORDER BY rank, e.timestamp DESC, e.id DESC`

// FindByExactHash returns pending edits containing a line whose raw hash
// equals hash, best candidate first.
func (s *Store) FindByExactHash(ctx context.Context, hash, filePath string) ([]Candidate, error) {
	return s.lookup(ctx, "hash", hash, filePath)
}

// FindByNormalizedHash returns pending edits containing a line whose
// whitespace-insensitive hash equals hash, best candidate first.
func (s *Store) FindByNormalizedHash(ctx context.Context, hash, filePath string) ([]Candidate, error) {
	return s.lookup(ctx, "hash_normalized", hash, filePath)
}

func (s *Store) lookup(ctx context.Context, column, hash, filePath string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(lookupQuery, column),
		filePath, path.Base(filePath), hash)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", column, err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var (
			c    Candidate
			ts   int64
			rank int
		)
		if err := rows.Scan(&c.EditID, &c.Provider, &c.Model, &c.FilePath, &ts, &rank); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		c.Timestamp = time.UnixMilli(ts)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}
	return out, nil
}

// FindAnyEditForFile returns the most recent edit of any status recorded for
// filePath, or nil when the file was never touched by an AI tool.
func (s *Store) FindAnyEditForFile(ctx context.Context, filePath string) (*Candidate, error) {
	var (
		c  Candidate
		ts int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, provider, model, file_path, timestamp
		FROM edits WHERE file_path = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, filePath).
		Scan(&c.EditID, &c.Provider, &c.Model, &c.FilePath, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying edits for %s: %w", filePath, err)
	}
	c.Timestamp = time.UnixMilli(ts)
	return &c, nil
}

// MarkMatched transitions the given edits to matched in one transaction.
// Already-matched edits keep their original commit, so repeating the call is
// harmless.
func (s *Store) MarkMatched(ctx context.Context, ids []int64, commitSHA string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark matched: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE edits
		SET status = 'matched', matched_commit = ?, matched_at = ?
		WHERE id = ? AND status = 'pending'`)
	if err != nil {
		return fmt.Errorf("preparing mark matched: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, commitSHA, at.UnixMilli(), id); err != nil {
			return fmt.Errorf("marking edit %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark matched: %w", err)
	}
	return nil
}

// Sweep deletes matched edits whose match is older than matchedAge and
// pending edits captured longer ago than pendingAge. Lines go with their
// edit. This is the only path that deletes data.
func (s *Store) Sweep(ctx context.Context, now time.Time, matchedAge, pendingAge time.Duration) (SweepResult, error) {
	var result SweepResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin sweep: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM edits WHERE (status = 'matched' AND matched_at < ?) OR (status = 'pending' AND timestamp < ?)`,
		now.Add(-matchedAge).UnixMilli(), now.Add(-pendingAge).UnixMilli())
	if err != nil {
		return result, fmt.Errorf("sweeping edits: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return result, fmt.Errorf("counting swept edits: %w", err)
	}
	result.Removed = int(removed)

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM edits").Scan(&result.Kept); err != nil {
		return result, fmt.Errorf("counting kept edits: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit sweep: %w", err)
	}
	return result, nil
}

// Stats reports edit counts by status and the stored line total.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var oldest sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'matched' THEN 1 ELSE 0 END), 0),
			MIN(CASE WHEN status = 'pending' THEN timestamp END)
		FROM edits`).Scan(&st.Pending, &st.Matched, &oldest)
	if err != nil {
		return st, fmt.Errorf("reading edit stats: %w", err)
	}
	if oldest.Valid {
		st.Oldest = time.UnixMilli(oldest.Int64)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lines").Scan(&st.Lines); err != nil {
		return st, fmt.Errorf("reading line stats: %w", err)
	}
	return st, nil
}

// Edit loads a stored edit and its lines by ID.
func (s *Store) Edit(ctx context.Context, id int64) (*CapturedEdit, error) {
	var (
		e                                     CapturedEdit
		ts                                    int64
		editType, status                      string
		oldContent, sessionID, toolUseID, sha sql.NullString
		matchedAt                             sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, timestamp, provider, file_path, model, content,
			content_hash, content_hash_normalized, edit_type, old_content, session_id, tool_use_id,
			status, matched_commit, matched_at
		FROM edits WHERE id = ?`, id).Scan(&e.ID, &ts, &e.Provider, &e.FilePath, &e.Model,
		&e.Content, &e.ContentHash, &e.ContentHashNormalized, &editType, &oldContent,
		&sessionID, &toolUseID, &status, &sha, &matchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("edit %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading edit %d: %w", id, err)
	}
	e.Timestamp = time.UnixMilli(ts)
	e.EditType = EditType(editType)
	e.Status = Status(status)
	e.OldContent = oldContent.String
	e.SessionID = sessionID.String
	e.ToolUseID = toolUseID.String
	e.MatchedCommit = sha.String
	if matchedAt.Valid {
		e.MatchedAt = time.UnixMilli(matchedAt.Int64)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT content, hash, hash_normalized, line_number,
			context_before, context_after
		FROM lines WHERE edit_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("loading lines for edit %d: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l             CapturedLine
			lineNo        sql.NullInt64
			before, after sql.NullString
		)
		if err := rows.Scan(&l.Content, &l.Hash, &l.HashNormalized, &lineNo, &before, &after); err != nil {
			return nil, fmt.Errorf("scanning line: %w", err)
		}
		l.LineNumber = int(lineNo.Int64)
		l.ContextBefore = before.String
		l.ContextAfter = after.String
		e.Lines = append(e.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lines: %w", err)
	}
	return &e, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
