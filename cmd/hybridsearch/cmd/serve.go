package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/hybridsearch/internal/mcp"
	"github.com/Aman-CERP/hybridsearch/internal/telemetry"
)

const metricsShutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		metricsAddr string
		enhance     bool
		method      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Serve the bm25_search, semantic_search, weighted_search and rrf_search
tools over the Model Context Protocol on stdin/stdout.

Logs go to ~/.hybridsearch/logs/ only since stdout carries the protocol.
With --metrics-addr, Prometheus metrics are exposed at /metrics.`,
		Example: `  # Serve with query enhancement and listwise reranking available
  hybridsearch serve --enhance --rerank-method batch

  # Expose metrics
  hybridsearch serve --metrics-addr 127.0.0.1:9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, metricsAddr, engineOptions{enhance: enhance, rerank: method})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address for /metrics (default: server.metrics_addr)")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "Allow query enhancement in rrf_search (needs a generation provider)")
	cmd.Flags().StringVar(&method, "rerank-method", "", "Reranker available to rrf_search: individual, batch, cross_encoder")

	return cmd
}

// runServe builds the engine and serves MCP until ctx is done. An empty
// metricsAddr falls back to the configured address.
func runServe(ctx context.Context, metricsAddr string, opts engineOptions) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	a.metrics = telemetry.NewMetrics(telemetry.StatsConfig{})
	engine, err := a.engine(ctx, opts)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(engine)
	if err != nil {
		return err
	}
	srv.SetStats(a.metrics)

	if metricsAddr == "" {
		metricsAddr = a.cfg.Server.MetricsAddr
	}
	if metricsAddr != "" {
		stopMetrics := serveMetrics(ctx, metricsAddr, a.metrics.Handler())
		defer stopMetrics()
	}

	slog.Info("mcp_server_starting",
		slog.String("rerankers", strings.Join(engine.Rerankers(), ",")),
		slog.Bool("enhance", opts.enhance),
		slog.String("metrics_addr", metricsAddr))
	return srv.Serve(ctx)
}

// serveMetrics exposes handler at /metrics in the background and returns a
// func that shuts the listener down.
func serveMetrics(ctx context.Context, addr string, handler http.Handler) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", handler)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics_listening", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", slog.String("error", err.Error()))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics_shutdown_failed", slog.String("error", err.Error()))
		}
	}
}
