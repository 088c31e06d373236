// Package resolve converts user selections and search terms into half-open
// offset ranges over a flattened article.
package resolve

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/annotate/internal/flatten"
)

var (
	ErrOutsideContent = errors.New("selection boundary outside article content")
	ErrEmptySelection = errors.New("selection is empty")
	ErrNotFound       = errors.New("text not found in article content")
)

// Range is a half-open [Start, End) pair of flat offsets.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of characters covered.
func (r Range) Len() int { return r.End - r.Start }

// Empty reports whether the range covers nothing.
func (r Range) Empty() bool { return r.End <= r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// Boundary is one end of a selection, in the platform's terms: a container
// node and an offset inside it. For text nodes the offset counts runes; for
// elements it is a child index.
type Boundary struct {
	Node   *html.Node
	Offset int
}

// Selection is a pair of boundaries in the order the user made them.
type Selection struct {
	Anchor Boundary
	Focus  Boundary
}

// FromSelection resolves both boundaries independently through the reverse
// lookup of idx. Backwards selections are normalized.
func FromSelection(idx *flatten.Index, start, end Boundary) (Range, error) {
	s, err := boundaryOffset(idx, start)
	if err != nil {
		return Range{}, fmt.Errorf("start: %w", err)
	}
	e, err := boundaryOffset(idx, end)
	if err != nil {
		return Range{}, fmt.Errorf("end: %w", err)
	}
	if e < s {
		s, e = e, s
	}
	r := Range{Start: s, End: e}
	if r.Empty() {
		return Range{}, ErrEmptySelection
	}
	return r, nil
}

// Snapshot resolves a live selection right away. It must run before the
// tree is mutated: a mutation invalidates the boundary nodes.
func Snapshot(idx *flatten.Index, sel Selection) (Range, error) {
	return FromSelection(idx, sel.Anchor, sel.Focus)
}

func boundaryOffset(idx *flatten.Index, b Boundary) (int, error) {
	if b.Node == nil || !idx.Contains(b.Node) {
		return 0, ErrOutsideContent
	}

	if b.Node.Type == html.TextNode {
		off, ok := idx.OffsetOf(b.Node, b.Offset)
		if !ok {
			return 0, fmt.Errorf("%w: offset %d out of node bounds", ErrOutsideContent, b.Offset)
		}
		return off, nil
	}

	// Element container: Offset is a child index.
	i := 0
	for c := b.Node.FirstChild; c != nil; c = c.NextSibling {
		if i == b.Offset {
			off, _ := idx.OffsetBefore(c)
			return off, nil
		}
		i++
	}
	if b.Offset != i {
		return 0, fmt.Errorf("%w: child index %d out of bounds", ErrOutsideContent, b.Offset)
	}
	off, _ := idx.OffsetAfter(b.Node)
	return off, nil
}

// FromSearch finds the first whitespace-insensitive occurrence of term in
// the flattened text. Runs of whitespace in both texts compare equal to a
// single space; the returned range addresses the unnormalized text.
func FromSearch(idx *flatten.Index, term string) (Range, error) {
	needle := collapse([]rune(strings.TrimSpace(term)))
	if len(needle.runes) == 0 {
		return Range{}, ErrNotFound
	}
	hay := collapse([]rune(idx.Text()))

	at := strings.Index(string(hay.runes), string(needle.runes))
	if at < 0 {
		return Range{}, ErrNotFound
	}
	// strings.Index returns a byte position; convert to a rune position.
	start := len([]rune(string(hay.runes)[:at]))
	end := start + len(needle.runes)

	r := Range{Start: hay.origin[start], End: hay.origin[end-1] + 1}
	return r, nil
}

// collapsed is a whitespace-normalized text with, for every kept rune, the
// offset of the rune it came from in the original text.
type collapsed struct {
	runes  []rune
	origin []int
}

func collapse(src []rune) collapsed {
	out := collapsed{
		runes:  make([]rune, 0, len(src)),
		origin: make([]int, 0, len(src)),
	}
	inSpace := false
	for i, r := range src {
		if unicode.IsSpace(r) {
			if inSpace {
				continue
			}
			inSpace = true
			out.runes = append(out.runes, ' ')
			out.origin = append(out.origin, i)
			continue
		}
		inSpace = false
		out.runes = append(out.runes, r)
		out.origin = append(out.origin, i)
	}
	return out
}
