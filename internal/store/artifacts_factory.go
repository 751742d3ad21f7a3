package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names the artifact persistence backend.
type Backend string

const (
	// BackendFile stores one gob file per artifact (default).
	BackendFile Backend = "file"

	// BackendSQLite stores every artifact in one SQLite database.
	BackendSQLite Backend = "sqlite"
)

// sqliteFileName is the database file used by the sqlite backend.
const sqliteFileName = "artifacts.db"

// OpenArtifactStore opens the artifact store for one corpus cache directory.
//
// backend options:
//   - "file" (default): <dir>/<artifact>.gob
//   - "sqlite": <dir>/artifacts.db
func OpenArtifactStore(dir string, backend string) (ArtifactStore, error) {
	switch Backend(backend) {
	case BackendFile, "":
		return NewFileArtifactStore(dir), nil
	case BackendSQLite:
		return NewSQLiteArtifactStore(filepath.Join(dir, sqliteFileName))
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (valid options: file, sqlite)", backend)
	}
}

// DetectBackend reports which backend an existing cache directory uses.
// Returns an empty string if the directory holds no cache.
func DetectBackend(dir string) Backend {
	if fileExists(filepath.Join(dir, sqliteFileName)) {
		return BackendSQLite
	}
	if fileExists(filepath.Join(dir, ArtifactIndex+".gob")) {
		return BackendFile
	}
	return ""
}

// CorpusCacheDir returns the cache directory for a named corpus.
func CorpusCacheDir(cacheDir, corpusName string) string {
	return filepath.Join(cacheDir, corpusName)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
