// Package main implements the ragd daemon and its admin commands.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the configuration file, empty for the default location.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragd",
	Short: "Document retrieval backend",
	Long: `ragd indexes uploaded documents (PDF, images, CSV, text, DOCX) into a
vector index and serves scoped similarity queries over HTTP.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/ragd/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(keysCmd)
}
