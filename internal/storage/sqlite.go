package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/planetfeed/internal/apperr"
	"github.com/starford/planetfeed/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS posted (
	title     TEXT PRIMARY KEY,
	link      TEXT NOT NULL DEFAULT '',
	posted_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posted_posted_at ON posted(posted_at);
`

// SQLiteStore keeps records in a SQLite table. Every Record is durable as
// soon as it returns, so Save has nothing left to do.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
// A file that is not a SQLite database is reported as apperr.ErrStoreCorrupt.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", classify(err))
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", classify(err))
	}
	return &SQLiteStore{conn: conn}, nil
}

// classify maps SQLite corruption codes onto apperr.ErrStoreCorrupt.
func classify(err error) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && (sqErr.Code == sqlite3.ErrNotADB || sqErr.Code == sqlite3.ErrCorrupt) {
		return fmt.Errorf("%w: %v", apperr.ErrStoreCorrupt, err)
	}
	return err
}

// Contains reports whether title has been posted.
func (s *SQLiteStore) Contains(title string) (bool, error) {
	var n int
	err := s.conn.QueryRow(`SELECT count(*) FROM posted WHERE title = ?`, title).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage: contains: %w", err)
	}
	return n > 0, nil
}

// Record upserts the row for title.
func (s *SQLiteStore) Record(title, link string, now time.Time) error {
	_, err := s.conn.Exec(`
		INSERT INTO posted (title, link, posted_at)
		VALUES (?, ?, ?)
		ON CONFLICT(title) DO UPDATE SET
			link      = excluded.link,
			posted_at = excluded.posted_at
	`, title, link, now.Unix())
	if err != nil {
		return fmt.Errorf("storage: record: %w", err)
	}
	return nil
}

// Evict deletes rows whose age exceeds retention.
func (s *SQLiteStore) Evict(now time.Time, retention time.Duration) (int, error) {
	cutoff := float64(now.Add(-retention).UnixNano()) / float64(time.Second)
	res, err := s.conn.Exec(`DELETE FROM posted WHERE posted_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage: evict: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage: evict: %w", err)
	}
	return int(n), nil
}

// Save is a no-op: rows are committed by Record.
func (s *SQLiteStore) Save() error { return nil }

// List returns all records, newest first.
func (s *SQLiteStore) List() ([]models.Record, error) {
	rows, err := s.conn.Query(`SELECT title, link, posted_at FROM posted ORDER BY posted_at DESC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var (
			r    models.Record
			unix int64
		)
		if err := rows.Scan(&r.Title, &r.Link, &unix); err != nil {
			return nil, err
		}
		r.PostedAt = time.Unix(unix, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
