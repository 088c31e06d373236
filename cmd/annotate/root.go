package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "annotate",
	Short: "In-page highlights, margin comments and shareable snippets for Markdown articles",
	Long: `annotate serves a directory of Markdown articles with reader annotations:
highlights anchored to text offsets, clustered marker cards in the margin and
permalinks to shared snippets. Annotations are stored in Redis, or in memory
for local runs.`,
	SilenceUsage: true,
}
