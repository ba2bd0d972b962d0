package main

import (
	"github.com/spf13/cobra"

	"github.com/hyperjump/chunkd/internal/cli"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every chunk and embedding",
	Long:  `Deletes all chunks and embeddings. Documents are kept and stay searchable by text; run "regenerate --all" to rebuild.`,
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	stats, err := b.ClearAll(cmd.Context())
	if err != nil {
		return err
	}
	return cli.WriteClearStats(cmd.OutOrStdout(), stats, f)
}
