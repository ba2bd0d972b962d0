package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/chunkd/internal/cli"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show document, chunk and index counts",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	st, err := b.Status(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if f == cli.OutputJSON {
		return cli.WriteJSON(out, st)
	}
	fmt.Fprintf(out, "documents:          %d\n", st.Documents)
	fmt.Fprintf(out, "chunks:             %d\n", st.Chunks)
	fmt.Fprintf(out, "embeddings:         %d   # chunks with a vector\n", st.Embeddings)
	fmt.Fprintf(out, "vector_index_size:  %d\n", st.VectorIndexSize)
	fmt.Fprintf(out, "keyword_index_size: %d   # documents searchable by text\n", st.KeywordIndexSize)
	if st.DiskUsage != nil {
		fmt.Fprintf(out, "disk_usage_bytes:   %d\n", st.DiskUsage.Total())
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "# configuration")
	fmt.Fprintf(out, "provider:           %s\n", st.Config.Provider)
	if st.Config.Model != "" {
		fmt.Fprintf(out, "model:              %s\n", st.Config.Model)
	}
	fmt.Fprintf(out, "embeddings_enabled: %t\n", st.EmbeddingsEnabled)
	fmt.Fprintf(out, "embedding_dims:     %d\n", st.Config.EmbeddingDimensions)
	fmt.Fprintf(out, "chunk_size:         %d\n", st.Config.ChunkSize)
	fmt.Fprintf(out, "chunk_overlap:      %d\n", st.Config.ChunkOverlap)
	fmt.Fprintf(out, "database_path:      %s\n", st.Config.DatabasePath)
	fmt.Fprintf(out, "bleve_index_path:   %s\n", st.Config.BleveIndexPath)
	return nil
}
