package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/annotate/internal/flatten"
	"github.com/MrSnakeDoc/annotate/internal/resolve"
)

var offsetsCmd = &cobra.Command{
	Use:   "offsets <article.md> <text>...",
	Short: "Print the offsets of a text in an article",
	Long: `Renders the article, flattens its visible text and searches for the given
text the way the engine relocates shared snippets. Prints the offsets an
annotation of that text would be stored with.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, root, err := loadArticle(args[0])
		if err != nil {
			return err
		}
		term := strings.Join(args[1:], " ")

		idx := flatten.Flatten(root)
		rng, err := resolve.FromSearch(idx, term)
		if err != nil {
			return fmt.Errorf("%q in %s: %w", term, a.Slug, err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"articleSlug":     a.Slug,
			"startOffset":     rng.Start,
			"endOffset":       rng.End,
			"highlightedText": idx.Slice(rng.Start, rng.End),
		})
	},
}

func init() {
	rootCmd.AddCommand(offsetsCmd)
}
