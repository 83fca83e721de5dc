package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath         string     `json:"db_path"`
	DBSizeBytes    int64      `json:"db_size_bytes"`
	TotalKeys      int        `json:"total_keys"`
	TotalRevisions int        `json:"total_revisions"`
	Keys           []KeyStats `json:"keys"`
}

// KeyStats holds per-key counts.
type KeyStats struct {
	Key      string `json:"key"`
	Versions int    `json:"versions"`
	Bytes    int64  `json:"bytes"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	// DB file size
	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT key) FROM snapshots`).Scan(&st.TotalKeys)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.TotalRevisions)

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, COUNT(*) AS versions, COALESCE(SUM(length(value)), 0) AS bytes
		FROM snapshots GROUP BY key ORDER BY versions DESC, key`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var ks KeyStats
		if err := rows.Scan(&ks.Key, &ks.Versions, &ks.Bytes); err != nil {
			return st, err
		}
		st.Keys = append(st.Keys, ks)
	}

	return st, rows.Err()
}
