package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ShareSnippet is a permalink to a piece of article text. It carries no
// offsets: readers following the link get the text located by search.
type ShareSnippet struct {
	ID           string    `json:"id"`
	Text         string    `json:"text"`
	ArticleSlug  string    `json:"articleSlug"`
	ArticleTitle string    `json:"articleTitle"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewShare is the payload of a share request.
type NewShare struct {
	Text         string `json:"text"`
	ArticleSlug  string `json:"articleSlug"`
	ArticleTitle string `json:"articleTitle"`
}

// ShareCreated is returned once a snippet is stored.
type ShareCreated struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Normalize trims fields and defaults the title.
func (n *NewShare) Normalize() {
	n.Text = strings.TrimSpace(n.Text)
	n.ArticleSlug = strings.TrimSpace(n.ArticleSlug)
	n.ArticleTitle = strings.TrimSpace(n.ArticleTitle)
	if n.ArticleTitle == "" {
		n.ArticleTitle = "Article"
	}
}

// Validate checks a normalized share payload.
func (n *NewShare) Validate() error {
	if n.Text == "" || utf8.RuneCountInString(n.Text) > MaxSnippetLength {
		return ErrInvalidText
	}
	if n.ArticleSlug == "" {
		return ErrInvalidSlug
	}
	return nil
}

// Excerpt shortens the snippet for link previews.
func (s *ShareSnippet) Excerpt(max int) string {
	if utf8.RuneCountInString(s.Text) <= max {
		return s.Text
	}
	r := []rune(s.Text)
	return string(r[:max]) + "..."
}
