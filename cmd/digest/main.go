// Package main is the entry point for the arxiv-digest CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the digest CLI.
var rootCmd = &cobra.Command{
	Use:   "digest",
	Short: "Daily arXiv paper digest for group chats",
	Long: `digest fetches recently announced arXiv papers, enriches them with a
translated summary, author affiliations, a framework figure and a code
repository link, and delivers the result as an interactive card to a
Feishu group chat.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; real deployments set the
		// environment directly.
		_ = godotenv.Load()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
