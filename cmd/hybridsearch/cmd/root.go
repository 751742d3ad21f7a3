// Package cmd provides the CLI commands for hybridsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hybridsearch/internal/config"
	apperrors "github.com/Aman-CERP/hybridsearch/internal/errors"
	"github.com/Aman-CERP/hybridsearch/internal/logging"
	"github.com/Aman-CERP/hybridsearch/pkg/version"
)

// Persistent flags
var (
	debugMode      bool
	configPath     string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the hybridsearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hybridsearch",
		Short: "Hybrid BM25 + semantic search over a movie corpus",
		Long: `hybridsearch retrieves movies from a JSON corpus with a BM25 keyword index,
a chunked semantic index, and two ways of fusing them: weighted min-max
fusion and Reciprocal Rank Fusion. Results can be reranked by an LLM or a
cross-encoder, evaluated against a golden dataset, and used for
retrieval-augmented generation.

Run 'hybridsearch build' once to create the index cache.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("hybridsearch version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.hybridsearch/logs/")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config, then .hybridsearch.yaml)")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newKeywordCmd())
	cmd.AddCommand(newSemanticCmd())
	cmd.AddCommand(newHybridCmd())
	cmd.AddCommand(newEvaluateCmd())
	cmd.AddCommand(newRAGCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the default logger. serve logs to the file only
// because stdout carries the MCP protocol.
func startLogging(cmd *cobra.Command, _ []string) error {
	level := "warn"
	if cfg, err := loadConfig(); err == nil {
		level = cfg.Server.LogLevel
	}

	logCfg := logging.CLIConfig(level, debugMode)
	if cmd.Name() == "serve" {
		logCfg = logging.ServeConfig(level)
		if debugMode {
			logCfg.Level = "debug"
		}
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig loads the --config file if given, otherwise the layered
// configuration for the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return config.Load(cwd)
}

// Execute runs the root command and prints structured errors.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, apperrors.FormatForCLI(err))
		slog.Error("command_failed", apperrors.LogAttrs(err)...)
	}
	_ = stopLogging(nil, nil)
	return err
}
