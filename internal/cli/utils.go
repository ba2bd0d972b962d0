// Package cli renders command results for the chunkd CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteIngestResult writes the outcome of an ingest.
func WriteIngestResult(w io.Writer, res *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "Ingested %s (%s)\n", res.Document.ID, res.Document.Title)
	writeStats(w, res.Stats)
	return nil
}

func writeStats(w io.Writer, s models.IngestStats) {
	fmt.Fprintf(w, "  chunks: %d  embeddings: %d  status: %s\n", s.Chunks, s.Embeddings, s.Status)
	switch s.Status {
	case models.EmbeddingQuotaExceeded:
		fmt.Fprintln(w, "  embedding quota exceeded; searchable by text until regenerated")
	case models.EmbeddingUnavailable:
		fmt.Fprintln(w, "  no embedding provider; searchable by text only")
	case models.EmbeddingPartial:
		fmt.Fprintln(w, "  some chunks have no embedding; regenerate to retry")
	}
}

// WriteRegenerateResult writes the stats of a single-document regeneration.
func WriteRegenerateResult(w io.Writer, id string, s models.IngestStats, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"documentId": id, "stats": s})
	}
	fmt.Fprintf(w, "Regenerated %s\n", id)
	writeStats(w, s)
	return nil
}

// ProgressPrinter returns a progress callback that writes one line per finished document.
func ProgressPrinter(w io.Writer) func(models.Progress) {
	return func(p models.Progress) {
		switch p.Phase {
		case models.ProgressDone:
			fmt.Fprintf(w, "[%d/%d] %s: %d chunks, %d embeddings (%s)\n",
				p.Position, p.Total, p.DocumentID, p.Stats.Chunks, p.Stats.Embeddings, p.Stats.Status)
		case models.ProgressFailed:
			fmt.Fprintf(w, "[%d/%d] %s: failed: %s\n", p.Position, p.Total, p.DocumentID, p.Error)
		}
	}
}

// WriteBatchResult writes the summary of a regeneration batch.
func WriteBatchResult(w io.Writer, res *models.BatchResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "Regenerated %d of %d documents\n", res.Processed, res.Total)
	if res.Failed != nil {
		fmt.Fprintf(w, "Stopped at %s: %s\n", res.Failed.DocumentID, res.Failed.Error)
	}
	return nil
}

// WriteClearStats writes the result of clearing all chunks.
func WriteClearStats(w io.Writer, s models.ClearStats, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"stats": s})
	}
	fmt.Fprintf(w, "Deleted %d chunks across %d documents\n", s.ChunksDeleted, s.DocumentsAffected)
	return nil
}

// SyncSummary counts the outcome of a directory sync.
type SyncSummary struct {
	Indexed   int `json:"indexed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

// WriteSyncSummary writes the result of a one-shot directory sync.
func WriteSyncSummary(w io.Writer, s SyncSummary, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, s)
	}
	fmt.Fprintf(w, "Synced files: %d indexed, %d unchanged, %d failed\n", s.Indexed, s.Unchanged, s.Failed)
	return nil
}

// WriteDetails writes a document with per-chunk figures.
func WriteDetails(w io.Writer, d *models.DocumentDetails, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, d)
	}
	fmt.Fprintf(w, "ID:      %s\n", d.Document.ID)
	fmt.Fprintf(w, "Title:   %s\n", d.Document.Title)
	if d.Document.URL != "" {
		fmt.Fprintf(w, "URL:     %s\n", d.Document.URL)
	}
	fmt.Fprintf(w, "Chunks:  %d (%d with embeddings)\n", d.Stats.TotalChunks, d.Stats.ChunksWithEmbeddings)
	fmt.Fprintf(w, "Words:   %d (avg %d per chunk)\n", d.Stats.TotalWords, d.Stats.AvgWordsPerChunk)
	fmt.Fprintf(w, "Chars:   %d\n", d.Stats.TotalCharacters)
	for _, c := range d.Chunks {
		mark := " "
		if c.HasEmbedding {
			mark = "*"
		}
		fmt.Fprintf(w, "\n%s #%d  %d words, %d chars\n", mark, c.Index, c.WordCount, c.CharCount)
		fmt.Fprintf(w, "  %s\n", utils.Truncate(c.Content, 120))
	}
	return nil
}

// WriteDocumentList writes one line per document.
func WriteDocumentList(w io.Writer, docs []*models.DocumentSummary, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.DocumentSummary{}
		}
		return WriteJSON(w, map[string]interface{}{"documents": docs})
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s  %-40s  %d chunks, %d embedded\n",
			d.Document.ID, utils.Truncate(d.Document.Title, 37), d.TotalChunks, d.ChunksWithEmbeddings)
	}
	return nil
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s search)\n", response.Total, response.QueryTime, response.Mode)
	if response.FallbackReason != "" {
		fmt.Fprintf(w, "Text fallback: %s\n", response.FallbackReason)
	}
	fmt.Fprintln(w)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f", result.Rank, result.Score)
		if result.ChunkIndex >= 0 {
			fmt.Fprintf(w, " | Chunk: %d", result.ChunkIndex)
		}
		fmt.Fprintf(w, "\nID: %s\n", result.DocumentID)
		if result.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", result.Title)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Content, 200))
	}
	return nil
}

// WriteWatchDirectories writes the watched directories, one per line.
func WriteWatchDirectories(w io.Writer, dirs []string, format OutputFormat) error {
	if format == OutputJSON {
		if dirs == nil {
			dirs = []string{}
		}
		return WriteJSON(w, map[string]interface{}{"directories": dirs})
	}
	if len(dirs) == 0 {
		fmt.Fprintln(w, "No watched directories")
		return nil
	}
	for _, d := range dirs {
		fmt.Fprintln(w, d)
	}
	return nil
}
