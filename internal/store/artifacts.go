package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
)

// ArtifactStore persists named, gob-encoded index artifacts.
// Get on an absent artifact fails with a CacheMissing error naming it.
type ArtifactStore interface {
	Put(name string, v any) error
	Get(name string, v any) error
	Exists(name string) bool

	// Location describes where artifacts live, for logs and status output.
	Location() string
	Close() error
}

// FileArtifactStore keeps each artifact in <dir>/<name>.gob.
type FileArtifactStore struct {
	dir string
}

var _ ArtifactStore = (*FileArtifactStore)(nil)

// NewFileArtifactStore creates a store rooted at dir. The directory is created
// on the first Put.
func NewFileArtifactStore(dir string) *FileArtifactStore {
	return &FileArtifactStore{dir: dir}
}

func (s *FileArtifactStore) path(name string) string {
	return filepath.Join(s.dir, name+".gob")
}

// Put encodes v and atomically replaces the artifact (temp file + rename).
func (s *FileArtifactStore) Put(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := s.path(name)
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp artifact %s: %w", name, err)
	}

	if err := gob.NewEncoder(file).Encode(v); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("artifact_temp_close_failed", slog.String("error", closeErr.Error()))
		}
		os.Remove(tmpPath)
		return fmt.Errorf("encode artifact %s: %w", name, err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close artifact %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename artifact %s: %w", name, err)
	}
	return nil
}

// Get decodes the artifact into v.
func (s *FileArtifactStore) Get(name string, v any) error {
	file, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.CacheMissing(name, err)
		}
		return fmt.Errorf("open artifact %s: %w", name, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("artifact_close_failed", slog.String("artifact", name), slog.String("error", err.Error()))
		}
	}()

	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return apperrors.New(apperrors.ErrCodeFileCorrupt,
			fmt.Sprintf("decode artifact %s", name), err).
			WithDetail("artifact", name).
			WithSuggestion("Run 'hybridsearch build --force' to rebuild the cache")
	}
	return nil
}

// Exists reports whether the artifact file is present.
func (s *FileArtifactStore) Exists(name string) bool {
	return fileExists(s.path(name))
}

// Location returns the cache directory.
func (s *FileArtifactStore) Location() string { return s.dir }

// Close is a no-op for the file backend.
func (s *FileArtifactStore) Close() error { return nil }

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
