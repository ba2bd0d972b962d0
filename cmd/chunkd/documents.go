package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperjump/chunkd/internal/cli"
)

var listOpts struct {
	offset int
	limit  int
}

var detailsCmd = &cobra.Command{
	Use:   "details <id>",
	Short: "Show a document with per-chunk statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listOpts.offset, "offset", 0, "skip this many documents")
	listCmd.Flags().IntVar(&listOpts.limit, "limit", 50, "maximum documents to list (0 = all)")
	rootCmd.AddCommand(detailsCmd, deleteCmd, listCmd)
}

func runDetails(cmd *cobra.Command, args []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	d, err := b.Details(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return cli.WriteDetails(cmd.OutOrStdout(), d, f)
}

func runDelete(cmd *cobra.Command, args []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	if f == cli.OutputJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), map[string]string{"message": "document deleted", "id": args[0]})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()

	docs, err := b.List(cmd.Context(), listOpts.offset, listOpts.limit)
	if err != nil {
		return err
	}
	return cli.WriteDocumentList(cmd.OutOrStdout(), docs, f)
}
