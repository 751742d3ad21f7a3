package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// Stderr receives text logs when non-nil.
	Stderr io.Writer
}

// DefaultLogDir returns the default log directory (~/.hybridsearch/logs/).
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".hybridsearch", "logs")
	}
	return filepath.Join(home, ".hybridsearch", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "hybridsearch.log")
}

// CLIConfig logs text to stderr at level. With debug the level drops to
// debug and JSON logs are also written to the default log file.
func CLIConfig(level string, debug bool) Config {
	cfg := Config{Level: level, Stderr: os.Stderr, MaxSizeMB: 10, MaxFiles: 5}
	if debug {
		cfg.Level = "debug"
		cfg.FilePath = DefaultLogPath()
	}
	return cfg
}

// ServeConfig logs to the default file only. Stdout carries the MCP stream
// and stderr is left to the client.
func ServeConfig(level string) Config {
	return Config{Level: level, FilePath: DefaultLogPath(), MaxSizeMB: 10, MaxFiles: 5}
}

// Setup builds a logger from cfg and returns it with a cleanup function that
// flushes and closes the log file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handlers []slog.Handler
	cleanup := func() {}

	if cfg.FilePath != "" {
		writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(writer, opts))
		cleanup = func() {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}
	if cfg.Stderr != nil {
		handlers = append(handlers, slog.NewTextHandler(cfg.Stderr, opts))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, opts)), cleanup, nil
	case 1:
		return slog.New(handlers[0]), cleanup, nil
	default:
		return slog.New(fanout(handlers)), cleanup, nil
	}
}

// SetupDefault runs Setup and installs the logger as the slog default.
func SetupDefault(cfg Config) (func(), error) {
	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return cleanup, nil
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
