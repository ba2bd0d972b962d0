package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperjump/chunkd/internal/cli"
)

var (
	configPath   string
	debugFlag    bool
	outputFormat string
	serverURL    string
)

var rootCmd = &cobra.Command{
	Use:   "chunkd",
	Short: "Document ingestion and retrieval for RAG",
	Long: `chunkd splits documents into overlapping chunks, embeds them with a configured
provider and keeps them searchable. When the provider is out of quota or not configured,
documents are still stored and remain searchable by text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "config file path (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(cli.OutputText), "output format: text or json")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv("CHUNKD_SERVER"),
		"URL of a running chunkd server to send commands to (default $CHUNKD_SERVER; empty opens the data files directly)")
}

func format() (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(outputFormat)
}
