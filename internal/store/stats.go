package store

import (
	"context"
	"os"
)

// Stats returns per-collection counts and the database file size.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Backend: "sqlite", Location: s.path}

	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}

	now := formatTime(s.now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, COUNT(*) AS cnt,
		       SUM(CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END) AS expired
		FROM documents
		GROUP BY collection ORDER BY cnt DESC, collection`, now)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs CollectionStats
		if err := rows.Scan(&cs.Collection, &cs.Count, &cs.Expired); err != nil {
			return st, err
		}
		st.Total += cs.Count
		st.Collections = append(st.Collections, cs)
	}
	return st, rows.Err()
}
