// Package db is the per-project SQLite persistence layer: tasks,
// sessions, session_activities, and review_comments (spec §6.3).
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns one project's SQLite connection and exposes a typed
// repository per table.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Open creates or opens the studio.db file under dataDir, applying
// migrations on every open.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "studio.db")
	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: conn, dbPath: dbPath}
	if err := store.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL,
		workspace_path TEXT,
		workspace_branch TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		status TEXT NOT NULL,
		opencode_session_id TEXT,
		created_at DATETIME NOT NULL,
		implementation_phase_number INTEGER,
		implementation_phase_title TEXT,
		FOREIGN KEY (task_id) REFERENCES tasks(id)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_task_id ON sessions(task_id);

	CREATE TABLE IF NOT EXISTS session_activities (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_session_activities_session_id ON session_activities(session_id, sequence);

	CREATE TABLE IF NOT EXISTS review_comments (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		line_start INTEGER,
		line_end INTEGER,
		body TEXT NOT NULL,
		status TEXT NOT NULL,
		FOREIGN KEY (task_id) REFERENCES tasks(id)
	);
	CREATE INDEX IF NOT EXISTS idx_review_comments_task_id ON review_comments(task_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO schema_migrations (version) VALUES (1)`)
	return err
}

// nullString converts an optional string pointer to sql.NullString.
func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

// nullableString converts a scanned sql.NullString back to *string.
func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// nullInt converts an optional int pointer to sql.NullInt64.
func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// nullableInt converts a scanned sql.NullInt64 back to *int.
func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// ProjectHash derives the namespace segment for a project's data
// directory from its absolute path. The database file lives at
// config.Paths.DataDirFor(hash)/studio.db, i.e. under the XDG data
// directory (<data>/opencode-studio/data/<hash(path)>/studio.db), not
// under a ~/.opencode-studio folder.
func ProjectHash(absPath string) string {
	return fmt.Sprintf("%x", fnv1a(absPath))
}

// fnv1a is a tiny dependency-free hash; the namespacing only needs to be
// stable and collision-resistant for a handful of local project paths,
// not cryptographically strong.
func fnv1a(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
