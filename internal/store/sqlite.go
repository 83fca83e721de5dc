package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. Every Put inserts a new
// version row; older versions beyond the history limit are pruned.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	history int
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// history is the number of versions kept per key; 0 keeps all.
func NewSQLiteStore(dbPath string, history int) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite path is required")
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath, history: history}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		revision   TEXT PRIMARY KEY,
		key        TEXT NOT NULL,
		value      BLOB NOT NULL,
		version    INTEGER NOT NULL,
		supersedes TEXT,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_key_version ON snapshots(key, version DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) (*Record, error) {
	now := time.Now().UTC()
	rev := newRevision(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Check for existing latest version
	var prevRev string
	var prevVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT revision, version FROM snapshots
		 WHERE key = ? ORDER BY version DESC LIMIT 1`, key).Scan(&prevRev, &prevVersion)

	version := 1
	var supersedes *string
	switch {
	case err == nil:
		version = prevVersion + 1
		supersedes = &prevRev
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("read latest version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (revision, key, value, version, supersedes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rev, key, value, version, supersedes, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if s.history > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM snapshots WHERE key = ? AND version <= ?`, key, version-s.history)
		if err != nil {
			return nil, fmt.Errorf("prune history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Record{
		Key:       key,
		Value:     value,
		Size:      len(value),
		Revision:  rev,
		Version:   version,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, value, revision, version, created_at
		 FROM snapshots WHERE key = ? ORDER BY version DESC LIMIT 1`, key)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// History returns every retained version of key, newest first.
func (s *SQLiteStore) History(ctx context.Context, key string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, revision, version, created_at
		 FROM snapshots WHERE key = ? ORDER BY version DESC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	return records, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("snapshot %q: %w", key, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.key, s.revision, s.version, length(s.value), s.created_at
		FROM snapshots s
		INNER JOIN (
			SELECT key, MAX(version) AS max_ver FROM snapshots GROUP BY key
		) latest ON s.key = latest.key AND s.version = latest.max_ver
		WHERE (? = '' OR instr(s.key, ?) = 1)
		ORDER BY s.key`, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var createdAt string
		if err := rows.Scan(&r.Key, &r.Revision, &r.Version, &r.Size, &createdAt); err != nil {
			return nil, err
		}
		r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (Record, error) {
	var r Record
	var createdAt string
	if err := row.Scan(&r.Key, &r.Value, &r.Revision, &r.Version, &createdAt); err != nil {
		return r, err
	}
	r.Size = len(r.Value)
	r.UpdatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return r, nil
}
