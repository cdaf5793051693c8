// Package journal implements the activity journal: an append-only SQLite
// table with FTS5 search that mirrors every knowledge-graph event, so past
// activity across projects and sessions can be searched by keyword.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the journal database filename inside the data directory.
const DBFile = "journal.db"

// ErrEmptyEvent is returned by Append for events without a kind or title.
var ErrEmptyEvent = errors.New("journal: event kind and title are required")

// ─── Types ───────────────────────────────────────────────────────────────────

// Entry is one journal row.
type Entry struct {
	ID        int64  `json:"id"`
	Project   string `json:"project"`
	Kind      string `json:"kind"`
	SubjectID string `json:"subject_id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// SearchResult embeds an Entry with its FTS5 rank score.
type SearchResult struct {
	Entry
	Rank float64 `json:"rank"`
}

// SearchOptions holds filters for Search and Recent.
type SearchOptions struct {
	Project string
	Kind    string
	Limit   int
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds journal configuration.
type Config struct {
	DataDir          string
	MaxContentLength int
	MaxSearchResults int
}

// DefaultConfig returns the default limits for the journal. DataDir has no
// default; the caller always chooses where the database lives.
func DefaultConfig() Config {
	return Config{
		MaxContentLength: 2000,
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the journal backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates the data directory if needed, opens SQLite in WAL mode and
// runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("journal: data dir is required")
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = DefaultConfig().MaxContentLength
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = DefaultConfig().MaxSearchResults
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			project    TEXT NOT NULL DEFAULT '',
			kind       TEXT NOT NULL,
			subject_id TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_project ON events(project);
		CREATE INDEX IF NOT EXISTS idx_events_kind    ON events(kind);
		CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			title,
			content,
			kind,
			project,
			content='events',
			content_rowid='id'
		);
	`); err != nil {
		return err
	}

	_, err := s.db.Exec(`
		CREATE TRIGGER IF NOT EXISTS events_fts_insert AFTER INSERT ON events BEGIN
			INSERT INTO events_fts(rowid, title, content, kind, project)
			VALUES (new.id, new.title, new.content, new.kind, new.project);
		END;

		CREATE TRIGGER IF NOT EXISTS events_no_update BEFORE UPDATE ON events BEGIN
			SELECT RAISE(ABORT, 'journal is append-only');
		END;

		CREATE TRIGGER IF NOT EXISTS events_no_delete BEFORE DELETE ON events BEGIN
			SELECT RAISE(ABORT, 'journal is append-only');
		END;
	`)
	return err
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Append adds an entry and returns its row id. Content longer than the
// configured maximum is truncated.
func (s *Store) Append(e Entry) (int64, error) {
	e.Kind = strings.TrimSpace(e.Kind)
	e.Title = strings.TrimSpace(e.Title)
	if e.Kind == "" || e.Title == "" {
		return 0, ErrEmptyEvent
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}

	res, err := s.db.Exec(`
		INSERT INTO events (project, kind, subject_id, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Project, e.Kind, e.SubjectID, e.Title, Truncate(e.Content, s.cfg.MaxContentLength), e.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}
	return res.LastInsertId()
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Recent returns the newest entries first.
func (s *Store) Recent(opts SearchOptions) ([]Entry, error) {
	sqlStr := `
		SELECT id, project, kind, subject_id, title, content, created_at
		FROM events
		WHERE 1 = 1
	`
	var args []any
	if opts.Project != "" {
		sqlStr += " AND project = ?"
		args = append(args, opts.Project)
	}
	if opts.Kind != "" {
		sqlStr += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	sqlStr += " ORDER BY id DESC LIMIT ?"
	args = append(args, s.limit(opts.Limit))

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Project, &e.Kind, &e.SubjectID, &e.Title, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Search runs an FTS5 keyword query. An empty query falls back to Recent.
func (s *Store) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		recent, err := s.Recent(opts)
		if err != nil {
			return nil, err
		}
		out := make([]SearchResult, len(recent))
		for i, e := range recent {
			out[i] = SearchResult{Entry: e}
		}
		return out, nil
	}

	sqlStr := `
		SELECT e.id, e.project, e.kind, e.subject_id, e.title, e.content, e.created_at, fts.rank
		FROM events_fts fts
		JOIN events e ON e.id = fts.rowid
		WHERE events_fts MATCH ?
	`
	args := []any{ftsQuery}
	if opts.Project != "" {
		sqlStr += " AND e.project = ?"
		args = append(args, opts.Project)
	}
	if opts.Kind != "" {
		sqlStr += " AND e.kind = ?"
		args = append(args, opts.Kind)
	}
	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, s.limit(opts.Limit))

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Project, &r.Kind, &r.SubjectID, &r.Title, &r.Content, &r.CreatedAt, &r.Rank); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of entries, optionally for one project.
func (s *Store) Count(project string) (int, error) {
	var n int
	var err error
	if project == "" {
		err = s.db.QueryRow("SELECT count(*) FROM events").Scan(&n)
	} else {
		err = s.db.QueryRow("SELECT count(*) FROM events WHERE project = ?", project).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return n, nil
}

func (s *Store) limit(n int) int {
	if n <= 0 {
		n = 10
	}
	return min(n, s.cfg.MaxSearchResults)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		if w = strings.ReplaceAll(w, `"`, ""); w != "" {
			words = append(words, `"`+w+`"`)
		}
	}
	return strings.Join(words, " ")
}
