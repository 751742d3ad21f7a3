package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/hybridsearch/internal/search"
	"github.com/Aman-CERP/hybridsearch/internal/store"
	"github.com/Aman-CERP/hybridsearch/internal/telemetry"
	"github.com/Aman-CERP/hybridsearch/pkg/version"
)

// ServerName is the implementation name announced to MCP clients.
const ServerName = "hybridsearch"

// QueryStatsURI is the resource URI of the query statistics snapshot.
const QueryStatsURI = "hybridsearch://query_stats"

// Engine is the query surface the server exposes. *search.Engine satisfies it.
type Engine interface {
	BM25Search(ctx context.Context, query string, limit int) ([]store.LexicalHit, error)
	SemanticSearch(ctx context.Context, query string, limit int) ([]store.SemanticHit, error)
	WeightedSearch(ctx context.Context, query string, alpha float64, limit int) ([]search.FusedCandidate, error)
	RRFSearch(ctx context.Context, query string, k, limit int) ([]search.FusedCandidate, error)
	Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.RerankedResult, error)
	Config() search.EngineConfig
}

// StatsSource provides the query statistics snapshot. *telemetry.Metrics
// satisfies it.
type StatsSource interface {
	Stats() *telemetry.StatsSnapshot
}

// Server is the MCP server bridging AI clients with the hybrid search engine.
type Server struct {
	mcp    *mcp.Server
	engine Engine
	logger *slog.Logger

	stats           StatsSource
	statsRegistered bool

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolBM25Search,
		Description: "Keyword search over the movie corpus using BM25. Best for exact titles, names and rare terms.",
	},
	{
		Name:        ToolSemanticSearch,
		Description: "Meaning-based search over chunked movie descriptions. Best for plot descriptions and paraphrases.",
	},
	{
		Name:        ToolWeightedSearch,
		Description: "Hybrid search mixing min-max normalized BM25 and semantic scores. alpha=1 is keyword only, alpha=0 is semantic only.",
	},
	{
		Name:        ToolRRFSearch,
		Description: "Hybrid search fusing BM25 and semantic rankings with Reciprocal Rank Fusion. Optionally enhances the query and reranks the results.",
	},
}

// NewServer creates a new MCP server over engine.
func NewServer(engine Engine) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}

	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// SetStats attaches a query statistics source and registers the
// query_stats resource.
func (s *Server) SetStats(src StatsSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = src
	if src != nil && !s.statsRegistered {
		s.registerStatsResource()
		s.statsRegistered = true
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with loosely typed arguments and returns
// markdown. It backs tests and the CLI; MCP clients go through the typed
// handlers.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	query, err := queryArg(args)
	if err != nil {
		return "", err
	}
	limit := intArg(args, "limit")

	var out SearchOutput
	switch name {
	case ToolBM25Search:
		out, err = s.bm25(ctx, BM25SearchInput{Query: query, Limit: limit})
	case ToolSemanticSearch:
		out, err = s.semantic(ctx, SemanticSearchInput{Query: query, Limit: limit})
	case ToolWeightedSearch:
		in := WeightedSearchInput{Query: query, Limit: limit}
		if a, ok := floatArg(args, "alpha"); ok {
			in.Alpha = &a
		}
		out, err = s.weighted(ctx, in)
	case ToolRRFSearch:
		in := RRFSearchInput{Query: query, Limit: limit, K: intArg(args, "k")}
		in.Enhance, _ = args["enhance"].(string)
		in.Rerank, _ = args["rerank"].(string)
		out, err = s.rrf(ctx, in)
	default:
		return "", NewMethodNotFoundError(name)
	}
	if err != nil {
		return "", err
	}
	return FormatResults(out), nil
}

// Serve runs the server over stdio until ctx is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_failed", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) registerTools() {
	s.logger.Debug("mcp_tools_registering")

	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in BM25SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
			out, err := s.bm25(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in SemanticSearchInput) (*mcp.CallToolResult, SearchOutput, error) {
			out, err := s.semantic(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in WeightedSearchInput) (*mcp.CallToolResult, SearchOutput, error) {
			out, err := s.weighted(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[3].Name, Description: tools[3].Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in RRFSearchInput) (*mcp.CallToolResult, SearchOutput, error) {
			out, err := s.rrf(ctx, in)
			return nil, out, err
		})

	s.logger.Info("mcp_tools_registered", slog.Int("count", len(tools)))
}

// registerStatsResource must be called with s.mu held.
func (s *Server) registerStatsResource() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "query_stats",
		URI:         QueryStatsURI,
		Description: "Query statistics: counts per mode, top terms, zero-result queries and latency distribution.",
		MIMEType:    "application/json",
	}, func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := s.statsJSON()
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      QueryStatsURI,
				MIMEType: "application/json",
				Text:     text,
			}},
		}, nil
	})
}

// statsJSON renders the current statistics snapshot.
func (s *Server) statsJSON() (string, error) {
	s.mu.RLock()
	src := s.stats
	s.mu.RUnlock()
	if src == nil {
		return "", &MCPError{Code: ErrCodeInternalError, Message: "query statistics are not enabled"}
	}
	data, err := json.MarshalIndent(src.Stats(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode query stats: %w", err)
	}
	return string(data), nil
}

func (s *Server) bm25(ctx context.Context, in BM25SearchInput) (SearchOutput, error) {
	limit := clampLimit(in.Limit, defaultLimit, minLimit, maxLimit)
	out := SearchOutput{Query: in.Query, Mode: search.ModeBM25}
	err := s.run(ctx, out.Mode, in.Query, limit, func() (int, error) {
		hits, err := s.engine.BM25Search(ctx, in.Query, limit)
		out.Results = FromLexicalHits(hits)
		return len(hits), err
	})
	return out, err
}

func (s *Server) semantic(ctx context.Context, in SemanticSearchInput) (SearchOutput, error) {
	limit := clampLimit(in.Limit, defaultLimit, minLimit, maxLimit)
	out := SearchOutput{Query: in.Query, Mode: search.ModeSemantic}
	err := s.run(ctx, out.Mode, in.Query, limit, func() (int, error) {
		hits, err := s.engine.SemanticSearch(ctx, in.Query, limit)
		out.Results = FromSemanticHits(hits)
		return len(hits), err
	})
	return out, err
}

func (s *Server) weighted(ctx context.Context, in WeightedSearchInput) (SearchOutput, error) {
	limit := clampLimit(in.Limit, defaultLimit, minLimit, maxLimit)
	alpha := s.engine.Config().Alpha
	if in.Alpha != nil {
		alpha = *in.Alpha
	}
	if alpha < 0 || alpha > 1 {
		return SearchOutput{}, NewInvalidParamsError(fmt.Sprintf("alpha must be between 0 and 1, got %g", alpha))
	}
	out := SearchOutput{Query: in.Query, Mode: search.ModeWeighted}
	err := s.run(ctx, out.Mode, in.Query, limit, func() (int, error) {
		cands, err := s.engine.WeightedSearch(ctx, in.Query, alpha, limit)
		out.Results = FromFused(out.Mode, cands)
		return len(cands), err
	})
	return out, err
}

// rrf uses the plain fusion path unless enhancement or reranking is
// requested, in which case the full Search pipeline runs.
func (s *Server) rrf(ctx context.Context, in RRFSearchInput) (SearchOutput, error) {
	limit := clampLimit(in.Limit, defaultLimit, minLimit, maxLimit)
	if in.K < 0 {
		return SearchOutput{}, NewInvalidParamsError(fmt.Sprintf("k must be positive, got %d", in.K))
	}
	out := SearchOutput{Query: in.Query, Mode: search.ModeRRF}

	if in.Enhance == "" && in.Rerank == "" {
		k := in.K
		if k == 0 {
			k = s.engine.Config().RRFK
		}
		err := s.run(ctx, out.Mode, in.Query, limit, func() (int, error) {
			cands, err := s.engine.RRFSearch(ctx, in.Query, k, limit)
			out.Results = FromFused(out.Mode, cands)
			return len(cands), err
		})
		return out, err
	}

	err := s.run(ctx, out.Mode, in.Query, limit, func() (int, error) {
		results, err := s.engine.Search(ctx, in.Query, search.SearchOptions{
			Mode:    search.ModeRRF,
			Limit:   limit,
			K:       in.K,
			Enhance: in.Enhance,
			Rerank:  in.Rerank,
		})
		out.Results = FromReranked(out.Mode, results)
		return len(results), err
	})
	return out, err
}

// run validates the query, executes fn and logs the request.
func (s *Server) run(ctx context.Context, mode, query string, limit int, fn func() (int, error)) error {
	if strings.TrimSpace(query) == "" {
		return NewInvalidParamsError("query cannot be empty or whitespace only")
	}
	if err := ctx.Err(); err != nil {
		return MapError(err)
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search_started",
		slog.String("request_id", requestID),
		slog.String("mode", mode),
		slog.String("query", query),
		slog.Int("limit", limit))

	n, err := fn()
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("search_failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	s.logger.Info("search_completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("result_count", n))
	return nil
}

func queryArg(args map[string]any) (string, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return "", NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	return query, nil
}

// intArg reads a numeric argument. JSON numbers decode as float64.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
