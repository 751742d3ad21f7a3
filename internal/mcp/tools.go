package mcp

// Tool names.
const (
	ToolBM25Search     = "bm25_search"
	ToolSemanticSearch = "semantic_search"
	ToolWeightedSearch = "weighted_search"
	ToolRRFSearch      = "rrf_search"
)

// Limit bounds applied to every tool.
const (
	defaultLimit = 5
	minLimit     = 1
	maxLimit     = 50
)

// BM25SearchInput defines the input schema for the bm25_search tool.
type BM25SearchInput struct {
	Query string `json:"query" jsonschema:"the keyword query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
}

// SemanticSearchInput defines the input schema for the semantic_search tool.
type SemanticSearchInput struct {
	Query string `json:"query" jsonschema:"the natural language query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
}

// WeightedSearchInput defines the input schema for the weighted_search tool.
type WeightedSearchInput struct {
	Query string   `json:"query" jsonschema:"the search query to execute"`
	Alpha *float64 `json:"alpha,omitempty" jsonschema:"keyword weight between 0 and 1; 1 is keyword only, 0 is semantic only, default 0.5"`
	Limit int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
}

// RRFSearchInput defines the input schema for the rrf_search tool.
type RRFSearchInput struct {
	Query   string `json:"query" jsonschema:"the search query to execute"`
	K       int    `json:"k,omitempty" jsonschema:"RRF smoothing constant; lower values favour top ranks, default 60"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	Enhance string `json:"enhance,omitempty" jsonschema:"optional query enhancement: spell, rewrite or expand"`
	Rerank  string `json:"rerank,omitempty" jsonschema:"optional rerank method: individual, batch or cross_encoder"`
}

// SearchOutput defines the output schema shared by all search tools.
type SearchOutput struct {
	Query   string         `json:"query" jsonschema:"the query as executed"`
	Mode    string         `json:"mode" jsonschema:"retrieval mode: bm25, semantic, weighted or rrf"`
	Results []ResultOutput `json:"results" jsonschema:"ranked results, best first"`
}

// ResultOutput is one ranked movie.
type ResultOutput struct {
	Rank          int      `json:"rank"`
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Snippet       string   `json:"snippet" jsonschema:"first 100 characters of the description"`
	Score         float64  `json:"score" jsonschema:"score used for ordering in this mode"`
	BM25Score     *float64 `json:"bm25_score,omitempty"`
	SemanticScore *float64 `json:"semantic_score,omitempty"`
	BM25Rank      int      `json:"bm25_rank,omitempty"`
	SemanticRank  int      `json:"semantic_rank,omitempty"`
	RerankScore   *float64 `json:"rerank_score,omitempty"`
	InBothLists   bool     `json:"in_both_lists,omitempty" jsonschema:"true if the movie appeared in both keyword and semantic results"`
}
