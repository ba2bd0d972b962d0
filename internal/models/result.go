package models

// SearchMode tells which index answered a query.
type SearchMode string

const (
	SearchSemantic SearchMode = "semantic"
	SearchText     SearchMode = "text"
)

// SearchResult is a single retrieval hit. ChunkIndex is -1 for document-level text hits.
type SearchResult struct {
	DocumentID string  `json:"documentId"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunkIndex"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Mode      SearchMode      `json:"mode"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// FallbackReason explains why text search answered instead of semantic search.
	FallbackReason string `json:"fallback_reason,omitempty"`
}
