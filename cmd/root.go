// Package cmd provides the svala CLI: the dispatch service, one-off route
// classification, and cache administration.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "svala",
	Short: "Svala - request routing and tool dispatch for a conversational assistant",
	Long: `Svala routes assistant queries to the right worker: rule-based
classification with an LLM fallback, bounded tool retrieval, circuit
breakers and per-session rate limiting.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "svala.yaml", "path to the configuration file")
}

func Execute() error {
	return rootCmd.Execute()
}
