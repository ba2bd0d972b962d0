package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/chunkd/internal/cli"
	"github.com/hyperjump/chunkd/internal/models"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Retrieve the chunks most relevant to a query",
	Long: `Embeds the query and returns the closest chunks. When no embeddings are available
the results come from text search over whole documents.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (0 = configured default)")
	rootCmd.AddCommand(searchCmd)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries work the
// same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch(cmd *cobra.Command, args []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	resp, err := b.Search(cmd.Context(), &models.SearchQuery{Query: buildSearchQuery(args), Limit: searchLimit})
	if err != nil {
		return err
	}
	return cli.WriteSearchResults(cmd.OutOrStdout(), resp, f)
}
