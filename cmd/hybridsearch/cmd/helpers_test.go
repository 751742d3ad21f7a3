package cmd

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testMovies = `{"movies": [
  {"id": 1, "title": "Grizzly Man", "description": "A bear expert lives among bears in Alaska."},
  {"id": 2, "title": "Jaws", "description": "A great white shark terrorizes a beach town."},
  {"id": 3, "title": "Paddington", "description": "A polite bear from Peru moves to London."},
  {"id": 4, "title": "The Martian", "description": "An astronaut stranded on Mars grows potatoes."}
]}`

const testGolden = `{"test_cases": [
  {"query": "bear", "relevant_docs": ["Grizzly Man", "Paddington"]},
  {"query": "shark attack", "relevant_docs": ["Jaws"]}
]}`

// testEnv is an isolated corpus, cache and config for CLI tests.
type testEnv struct {
	configFile string
	cacheDir   string
}

// newTestEnv writes a small corpus and a config pointing at it. The user
// config directory is redirected so the host's config never leaks in.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	movies := write("movies.json", testMovies)
	golden := write("golden.json", testGolden)
	stopwords := write("stopwords.txt", "a\nan\nthe\nin\nfrom\nto\non\namong\n")
	cacheDir := filepath.Join(dir, "cache")

	cfg := write("config.yaml", "data:\n"+
		"  movies: "+movies+"\n"+
		"  golden: "+golden+"\n"+
		"  stopwords: "+stopwords+"\n"+
		"cache:\n"+
		"  dir: "+cacheDir+"\n"+
		"server:\n"+
		"  log_level: error\n")

	return testEnv{configFile: cfg, cacheDir: filepath.Join(cacheDir, "movies")}
}

// run executes the root command with --config and returns stdout.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configFile}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// lockedBuffer is a bytes.Buffer safe for handlers logging from goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs routes the default slog logger to a JSON buffer at debug level
// for the rest of the test.
func captureLogs(t *testing.T) *lockedBuffer {
	t.Helper()
	buf := &lockedBuffer{}
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return buf
}
