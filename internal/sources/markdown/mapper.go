package markdown

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Mapper renders parsed files into domain articles.
type Mapper struct {
	md goldmark.Markdown
}

// NewMapper creates a mapper with the site's Markdown pipeline: GitHub
// flavored Markdown, heading ids and highlighted code blocks.
func NewMapper() *Mapper {
	return &Mapper{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
			),
		),
	}
}

// Render converts one Markdown body to HTML.
func (m *Mapper) Render(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

// MapArticles renders every non-draft file. Files sharing a slug are an
// error: annotations are keyed by slug.
func (m *Mapper) MapArticles(files []File) ([]*domain.Article, error) {
	articles := make([]*domain.Article, 0, len(files))
	seen := make(map[string]string, len(files))
	now := time.Now()

	for _, f := range files {
		if f.Header.Draft {
			continue
		}

		slug := f.Header.Slug
		if slug == "" {
			slug = Slugify(strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)))
		}
		if slug == "" {
			continue
		}
		if prev, ok := seen[slug]; ok {
			return nil, fmt.Errorf("duplicate slug %q in %s and %s", slug, prev, f.Path)
		}
		seen[slug] = f.Path

		rendered, err := m.Render(f.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Path, err)
		}

		title := f.Header.Title
		if title == "" {
			title = slug
		}

		articles = append(articles, &domain.Article{
			Slug:       slug,
			Title:      title,
			Date:       f.Header.Date,
			Summary:    f.Header.Summary,
			Markdown:   string(f.Body),
			HTML:       rendered,
			SourcePath: f.Path,
			LoadedAt:   now,
		})
	}

	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles found")
	}
	return articles, nil
}

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	s = slugUnsafe.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
