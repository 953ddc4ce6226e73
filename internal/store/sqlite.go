package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var fieldNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore implements DocStore using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection  TEXT NOT NULL,
		id          TEXT NOT NULL,
		body        TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		expires_at  TEXT,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(collection, created_at);
	CREATE INDEX IF NOT EXISTS idx_documents_expires ON documents(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT collection, id, body, created_at, updated_at, expires_at
		 FROM documents WHERE collection = ? AND id = ?`, collection, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *SQLiteStore) Set(ctx context.Context, doc Document) error {
	if doc.Collection == "" || doc.ID == "" {
		return errors.New("set document: collection and id required")
	}
	now := s.now().UTC()
	created := doc.CreatedAt
	if created.IsZero() {
		created = now
	}
	body := string(doc.Body)
	if body == "" {
		body = "{}"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET
		   body = excluded.body,
		   updated_at = excluded.updated_at,
		   expires_at = excluded.expires_at`,
		doc.Collection, doc.ID, body, formatTime(created), formatTime(now), formatTimePtr(doc.ExpiresAt))
	if err != nil {
		return fmt.Errorf("set document %s/%s: %w", doc.Collection, doc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

func (s *SQLiteStore) QueryByField(ctx context.Context, collection, field, value string) ([]Document, error) {
	if !fieldNameRegex.MatchString(field) {
		return nil, fmt.Errorf("query documents: invalid field name %q", field)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, id, body, created_at, updated_at, expires_at
		 FROM documents
		 WHERE collection = ? AND json_extract(body, '$.' || ?) = ?
		 ORDER BY created_at, id`, collection, field, value)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT collection, id, body, created_at, updated_at, expires_at
		 FROM documents WHERE collection = ?
		 ORDER BY created_at, id`, collection)
	if err != nil {
		return nil, err
	}
	return collectDocuments(rows)
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context, collection string, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		collection, formatTime(now))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (Document, error) {
	var d Document
	var body, createdAt, updatedAt string
	var expiresAt sql.NullString

	if err := row.Scan(&d.Collection, &d.ID, &body, &createdAt, &updatedAt, &expiresAt); err != nil {
		return d, err
	}
	d.Body = []byte(body)
	d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, expiresAt.String)
		d.ExpiresAt = &t
	}
	return d, nil
}

func collectDocuments(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

var ttlRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseTTL parses a TTL string like "7d", "24h", "30m" into a time.Duration.
func ParseTTL(s string) (time.Duration, error) {
	m := ttlRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid format %q (use e.g. 7d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}
