package main

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/annotate/internal/dom"
	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/sources/markdown"
)

// loadArticle renders one Markdown file and parses the result into the tree
// offsets are computed against.
func loadArticle(path string) (*domain.Article, *html.Node, error) {
	f, err := markdown.NewLoader("").LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	articles, err := markdown.NewMapper().MapArticles([]markdown.File{f})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render %s: %w", path, err)
	}
	a := articles[0]
	root, err := dom.ParseFragment(a.HTML)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse rendered %s: %w", path, err)
	}
	return a, root, nil
}
