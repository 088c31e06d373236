package view

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/annotate/internal/dom"
	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/highlight"
	"github.com/MrSnakeDoc/annotate/internal/resolve"
)

// AnchorID is the element id given to the first mark of a relocated
// snippet, so the page can scroll to it.
const AnchorID = "shared-highlight"

var ErrNothingToLocate = errors.New("no share id or text to locate")

// ShareGetter fetches a shared snippet.
type ShareGetter interface {
	GetShare(ctx context.Context, id string) (*domain.ShareSnippet, error)
}

// RelocateRequest names the snippet to find: a share id, or literal text.
// ShareID wins when both are set.
type RelocateRequest struct {
	ShareID string
	Text    string
}

// Located is a snippet found in the article.
type Located struct {
	Range  resolve.Range
	Text   string
	Anchor *html.Node // first pulse mark; carries AnchorID
	Marks  []*html.Node
}

// Relocate finds a shared snippet in root by text search and wraps it in a
// pulse mark. Any earlier pulse mark is removed first. shares may be nil
// when req carries only text.
func Relocate(ctx context.Context, root *html.Node, shares ShareGetter, req RelocateRequest) (*Located, error) {
	text, err := snippetText(ctx, shares, req)
	if err != nil {
		return nil, err
	}
	return locate(root, text)
}

// Relocate runs Relocate against the view's article. The share is fetched
// before the tree lock is taken.
func (v *View) Relocate(ctx context.Context, shares ShareGetter, req RelocateRequest) (*Located, error) {
	text, err := snippetText(ctx, shares, req)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, ErrClosed
	}
	return locate(v.root, text)
}

func snippetText(ctx context.Context, shares ShareGetter, req RelocateRequest) (string, error) {
	text := strings.TrimSpace(req.Text)
	if req.ShareID != "" {
		if shares == nil {
			return "", fmt.Errorf("cannot fetch share %s: no storage", req.ShareID)
		}
		snip, err := shares.GetShare(ctx, req.ShareID)
		if err != nil {
			return "", fmt.Errorf("failed to fetch share %s: %w", req.ShareID, err)
		}
		text = snip.Text
	}
	if text == "" {
		return "", ErrNothingToLocate
	}
	return text, nil
}

func locate(root *html.Node, text string) (*Located, error) {
	highlight.ClearShare(root)
	rng, marks, err := highlight.Locate(root, text)
	if err != nil {
		return nil, fmt.Errorf("failed to locate snippet: %w", err)
	}

	loc := &Located{Range: rng, Text: text, Marks: marks}
	if len(marks) > 0 {
		loc.Anchor = marks[0]
		dom.SetAttr(loc.Anchor, "id", AnchorID)
	}
	return loc, nil
}
