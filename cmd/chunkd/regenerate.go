package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hyperjump/chunkd/internal/cli"
	"github.com/hyperjump/chunkd/internal/models"
)

var regenerateAll bool

var regenerateCmd = &cobra.Command{
	Use:   "regenerate [ids...]",
	Short: "Re-chunk and re-embed documents",
	Long: `Regenerates the chunks and embeddings of the given documents, in order, stopping at
the first failure. With --all every document is regenerated, oldest first. A single id
regenerates just that document.`,
	RunE: runRegenerate,
}

func init() {
	regenerateCmd.Flags().BoolVar(&regenerateAll, "all", false, "regenerate every document")
	rootCmd.AddCommand(regenerateCmd)
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	if regenerateAll == (len(args) > 0) {
		return errors.New("pass document ids or --all, not both")
	}
	f, err := format()
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		stats, err := b.RegenerateOne(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return cli.WriteRegenerateResult(out, args[0], stats, f)
	}

	var progress func(models.Progress)
	if f == cli.OutputText {
		progress = cli.ProgressPrinter(cmd.ErrOrStderr())
	}
	res, err := b.RegenerateBatch(cmd.Context(), args, regenerateAll, progress)
	if err != nil {
		return err
	}
	if err := cli.WriteBatchResult(out, res, f); err != nil {
		return err
	}
	if res.Failed != nil {
		return res.Failed.Err
	}
	return nil
}
