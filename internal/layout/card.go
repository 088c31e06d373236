package layout

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

// Renderer turns marker groups into HTML fragments. It holds no per-view
// state and is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
	// ProfileURL prefixes "@handle" authors.
	ProfileURL string
}

// NewRenderer returns a renderer whose comment Markdown cannot inject raw
// HTML.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		),
		ProfileURL: "https://twitter.com/",
	}
}

// Card renders one marker at its placed top. Clusters render as a summary
// of count and color dots unless expanded.
func (r *Renderer) Card(g MarkerGroup, now time.Time) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="annotation-marker" data-group-key="%s" data-expanded="%t" style="top: %spx">`,
		html.EscapeString(g.Key), g.Expanded, px(g.Top))

	switch {
	case g.Single():
		a := g.Members[0]
		b.WriteString(`<div class="annotation-card" data-annotation-id="` + strconv.FormatInt(a.ID, 10) + `">`)
		if err := r.member(&b, &a, now); err != nil {
			return "", err
		}
		b.WriteString(`</div>`)

	case !g.Expanded:
		b.WriteString(`<div class="annotation-card grouped"><div class="grouped-header" data-header="true"><div class="dots">`)
		for i := range g.Members {
			b.WriteString(dot(g.Members[i].Color))
		}
		fmt.Fprintf(&b, `</div><span class="count">%d annotations</span><span class="expand">▶</span></div></div>`, len(g.Members))

	default:
		fmt.Fprintf(&b, `<div class="annotation-card expanded"><div class="grouped-header" data-header="true"><span class="count">%d annotations</span><span class="collapse">▼</span></div><div class="annotations-list">`, len(g.Members))
		for i := range g.Members {
			a := g.Members[i]
			fmt.Fprintf(&b, `<div class="annotation-item" data-annotation-id="%d">`, a.ID)
			if err := r.member(&b, &a, now); err != nil {
				return "", err
			}
			b.WriteString(`</div>`)
		}
		b.WriteString(`</div></div>`)
	}

	b.WriteString(`</div>`)
	return b.String(), nil
}

// Board renders every marker into one container.
func (r *Renderer) Board(groups []MarkerGroup, now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(`<div class="annotations-container" data-annotation-marker="true">`)
	for _, g := range groups {
		card, err := r.Card(g, now)
		if err != nil {
			return "", fmt.Errorf("failed to render marker %s: %w", g.Key, err)
		}
		b.WriteString(card)
	}
	b.WriteString(`</div>`)
	return b.String(), nil
}

// Comment renders comment Markdown to HTML.
func (r *Renderer) Comment(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render comment: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Author renders the author name, linking "@handle" names to their profile.
func (r *Renderer) Author(a *domain.Annotation) string {
	if handle, ok := a.AuthorHandle(); ok {
		return fmt.Sprintf(`<a class="author" href="%s%s" target="_blank" rel="noopener noreferrer">@%s</a>`,
			html.EscapeString(r.ProfileURL), html.EscapeString(handle), html.EscapeString(handle))
	}
	return `<span class="author">` + html.EscapeString(a.Author()) + `</span>`
}

func (r *Renderer) member(b *strings.Builder, a *domain.Annotation, now time.Time) error {
	comment, err := r.Comment(a.CommentText)
	if err != nil {
		return err
	}
	b.WriteString(`<div class="annotation-header">`)
	b.WriteString(dot(a.Color))
	b.WriteString(r.Author(a))
	b.WriteString(`</div><div class="comment">`)
	b.WriteString(comment)
	b.WriteString(`</div>`)
	fmt.Fprintf(b, `<div class="date"><time datetime="%s" title="%s">%s</time></div>`,
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.CreatedAt.UTC().Format("Jan 2, 2006"),
		humanize.RelTime(a.CreatedAt, now, "ago", "from now"))
	return nil
}

func dot(color string) string {
	return `<div class="dot" style="background-color: ` + domain.SwatchFor(color).Dot + `"></div>`
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
