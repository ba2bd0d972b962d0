package models

// EmbeddingStatus summarizes the embedding phase of one ingestion run.
type EmbeddingStatus string

const (
	// EmbeddingComplete means every chunk obtained an embedding.
	EmbeddingComplete EmbeddingStatus = "complete"
	// EmbeddingPartial means some chunks failed individually after retries.
	EmbeddingPartial EmbeddingStatus = "partial"
	// EmbeddingQuotaExceeded means the provider ran out of quota; no chunk has an embedding
	// and retrieval uses the text-search fallback.
	EmbeddingQuotaExceeded EmbeddingStatus = "quota_exceeded"
	// EmbeddingUnavailable means no provider is configured.
	EmbeddingUnavailable EmbeddingStatus = "unavailable"
)

// IngestStats is the result of chunking and embedding one document.
type IngestStats struct {
	Chunks     int             `json:"chunks"`
	Embeddings int             `json:"embeddings"`
	Status     EmbeddingStatus `json:"status"`
}

// IngestResult is returned by a successful ingest.
type IngestResult struct {
	Document *Document   `json:"document"`
	Stats    IngestStats `json:"stats"`
}

// DocumentResult pairs a document id with its regeneration stats.
type DocumentResult struct {
	DocumentID string      `json:"documentId"`
	Stats      IngestStats `json:"stats"`
}

// BatchFailure identifies the document that stopped a batch.
type BatchFailure struct {
	DocumentID string `json:"documentId"`
	Error      string `json:"error"`
	Err        error  `json:"-"`
}

// BatchResult is the outcome of a sequential, fail-fast regeneration batch.
// Processed counts fully regenerated documents; Failed is set when the batch stopped early.
type BatchResult struct {
	Processed int              `json:"processed"`
	Total     int              `json:"total"`
	Results   []DocumentResult `json:"results"`
	Failed    *BatchFailure    `json:"failed,omitempty"`
}

// ProgressPhase marks where a batch is for one document.
type ProgressPhase string

const (
	ProgressStarted ProgressPhase = "started"
	ProgressDone    ProgressPhase = "done"
	ProgressFailed  ProgressPhase = "failed"
)

// Progress is emitted before and after each document of a regeneration batch.
type Progress struct {
	Phase      ProgressPhase `json:"phase"`
	Position   int           `json:"position"`
	Total      int           `json:"total"`
	DocumentID string        `json:"documentId"`
	Stats      *IngestStats  `json:"stats,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ClearStats is the result of deleting every chunk.
type ClearStats struct {
	ChunksDeleted     int `json:"chunksDeleted"`
	DocumentsAffected int `json:"documentsAffected"`
}

// ChunkDetail describes one chunk for the document detail view.
type ChunkDetail struct {
	Index               int    `json:"index"`
	Content             string `json:"content"`
	HasEmbedding        bool   `json:"hasEmbedding"`
	EmbeddingDimensions int    `json:"embeddingDimensions"`
	WordCount           int    `json:"wordCount"`
	CharCount           int    `json:"charCount"`
}

// DetailStats aggregates chunk figures for one document.
type DetailStats struct {
	TotalChunks          int `json:"totalChunks"`
	ChunksWithEmbeddings int `json:"chunksWithEmbeddings"`
	TotalWords           int `json:"totalWords"`
	TotalCharacters      int `json:"totalCharacters"`
	AvgWordsPerChunk     int `json:"avgWordsPerChunk"`
}

// DocumentDetails is the detail view of one document.
type DocumentDetails struct {
	Document *Document     `json:"document"`
	Chunks   []ChunkDetail `json:"chunks"`
	Stats    DetailStats   `json:"stats"`
}

// DocumentSummary is one row of the document listing.
type DocumentSummary struct {
	Document             *Document `json:"document"`
	TotalChunks          int       `json:"totalChunks"`
	ChunksWithEmbeddings int       `json:"chunksWithEmbeddings"`
}
