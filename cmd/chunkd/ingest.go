package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/chunkd/internal/cli"
	"github.com/hyperjump/chunkd/internal/extract"
	"github.com/hyperjump/chunkd/internal/models"
)

var ingestOpts struct {
	title    string
	url      string
	version  string
	metadata map[string]string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Ingest a text document",
	Long: `Reads a document from a file, or plain text from stdin when the argument is "-", then
chunks, embeds and stores it. Text is extracted from PDF, Office (docx, xlsx, pptx) and
OpenDocument (odt, ods, odp) files. The title defaults to the file name without its extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestOpts.title, "title", "t", "", "document title")
	ingestCmd.Flags().StringVar(&ingestOpts.url, "url", "", "source URL")
	ingestCmd.Flags().StringVar(&ingestOpts.version, "version", "", "document version")
	ingestCmd.Flags().StringToStringVarP(&ingestOpts.metadata, "meta", "m", nil, "metadata key=value pairs")
	rootCmd.AddCommand(ingestCmd)
}

// readInput returns the text of path, or stdin for "-", and a title derived from the file name.
func readInput(path string, stdin io.Reader) (content, title string, err error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}
	content, err = extract.NewExtractor().Extract(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return content, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	content, title, err := readInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	if ingestOpts.title != "" {
		title = ingestOpts.title
	}

	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	input := &models.DocumentInput{
		Title:   title,
		Content: content,
		URL:     ingestOpts.url,
		Version: ingestOpts.version,
	}
	if len(ingestOpts.metadata) > 0 {
		input.Metadata = make(map[string]interface{}, len(ingestOpts.metadata))
		for k, v := range ingestOpts.metadata {
			input.Metadata[k] = v
		}
	}
	res, err := b.Ingest(cmd.Context(), input)
	if err != nil {
		return err
	}
	return cli.WriteIngestResult(cmd.OutOrStdout(), res, f)
}
