// Package cmd implements the petdex command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "petdex",
	Short: "Petdex - content management backend for pets",
	Long: `Petdex manages pet content: data instances with knowledge and image
attachments, full-text and semantic search, export and statistics.

Run "petdex serve" to start the HTTP API server.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
