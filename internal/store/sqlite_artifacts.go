package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteArtifactStore keeps all artifacts of one corpus as rows of a single
// SQLite database, so the cache is one file that can be copied around.
type SQLiteArtifactStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

var _ ArtifactStore = (*SQLiteArtifactStore)(nil)

const artifactSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// NewSQLiteArtifactStore opens or creates the database at path.
// If path is empty, an in-memory database is used (tests).
func NewSQLiteArtifactStore(path string) (*SQLiteArtifactStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps the in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		artifactSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize artifact database: %w", err)
		}
	}

	slog.Debug("sqlite_artifact_store_opened", slog.String("path", dsn))
	return &SQLiteArtifactStore{db: db, path: path}, nil
}

// Put encodes v and upserts it under name.
func (s *SQLiteArtifactStore) Put(name string, v any) error {
	data, err := encodeGob(v)
	if err != nil {
		return fmt.Errorf("encode artifact %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("artifact store is closed")
	}

	_, err = s.db.Exec(`INSERT INTO artifacts (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write artifact %s: %w", name, err)
	}
	return nil
}

// Get decodes the named artifact into v.
func (s *SQLiteArtifactStore) Get(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("artifact store is closed")
	}

	var data []byte
	err := s.db.QueryRow(`SELECT data FROM artifacts WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.CacheMissing(name, err)
	}
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", name, err)
	}

	if err := decodeGob(data, v); err != nil {
		return apperrors.New(apperrors.ErrCodeFileCorrupt,
			fmt.Sprintf("decode artifact %s", name), err).
			WithDetail("artifact", name)
	}
	return nil
}

// Exists reports whether a row exists for name.
func (s *SQLiteArtifactStore) Exists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM artifacts WHERE name = ?`, name).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// Location returns the database path.
func (s *SQLiteArtifactStore) Location() string {
	if s.path == "" {
		return ":memory:"
	}
	return s.path
}

// Close closes the database. Safe to call twice.
func (s *SQLiteArtifactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
