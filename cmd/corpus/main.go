package main

import (
	"fmt"
	"os"

	"github.com/corpusai/corpusd/internal/cli"
	"github.com/corpusai/corpusd/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "corpus",
		Short: "Corpus CLI - Question answering over your documents",
		Long: `Corpus CLI provides commands to upload documents and ask questions.

Environment variables:
  CORPUS_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.SettingsCmd())
	rootCmd.AddCommand(client.AgentCmd())
	rootCmd.AddCommand(client.StatusCmd())
	rootCmd.AddCommand(client.ModelsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
