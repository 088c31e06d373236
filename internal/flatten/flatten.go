// Package flatten turns a rendered HTML subtree into the flat text that
// annotation offsets address, plus a table mapping every offset back to the
// text node that holds it.
//
// Offsets count runes. The index is built once per call and never re-walks
// the tree, so it must be rebuilt after the tree is mutated.
package flatten

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Leaf is one text node of the flattened subtree.
type Leaf struct {
	Node  *html.Node
	Start int // offset of the first rune of Node.Data in the flat text
	Len   int // rune length of Node.Data

	pre int // preorder position of Node
}

// End returns the offset one past the leaf's last rune.
func (l Leaf) End() int { return l.Start + l.Len }

// span records where a node sits in preorder: its own position and the
// position of its last descendant.
type span struct {
	pre  int
	last int
}

// Index is the immutable result of Flatten.
type Index struct {
	root   *html.Node
	text   string
	runes  []rune
	leaves []Leaf
	byNode map[*html.Node]int
	spans  map[*html.Node]span
}

// Flatten walks root depth-first and concatenates the data of every text
// node in document order. Elements contribute no characters of their own;
// comments and doctypes are skipped.
func Flatten(root *html.Node) *Index {
	idx := &Index{
		root:   root,
		byNode: make(map[*html.Node]int),
		spans:  make(map[*html.Node]span),
	}
	if root == nil {
		return idx
	}

	var b strings.Builder
	offset := 0
	pre := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		me := pre
		pre++
		if n.Type == html.TextNode {
			l := utf8.RuneCountInString(n.Data)
			idx.byNode[n] = len(idx.leaves)
			idx.leaves = append(idx.leaves, Leaf{Node: n, Start: offset, Len: l, pre: me})
			b.WriteString(n.Data)
			offset += l
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		idx.spans[n] = span{pre: me, last: pre - 1}
	}
	walk(root)

	idx.text = b.String()
	idx.runes = []rune(idx.text)
	return idx
}

// Root returns the subtree the index was built from.
func (idx *Index) Root() *html.Node { return idx.root }

// Text returns the flattened text.
func (idx *Index) Text() string { return idx.text }

// Len returns the rune length of the flattened text.
func (idx *Index) Len() int { return len(idx.runes) }

// Leaves returns the leaf table in document order. Callers must not modify it.
func (idx *Index) Leaves() []Leaf { return idx.leaves }

// Slice returns the flattened text in [start, end), clamped to the text.
func (idx *Index) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(idx.runes) {
		end = len(idx.runes)
	}
	if start >= end {
		return ""
	}
	return string(idx.runes[start:end])
}

// Contains reports whether n belongs to the indexed subtree.
func (idx *Index) Contains(n *html.Node) bool {
	_, ok := idx.spans[n]
	return ok
}

// NodeAt returns the text node holding offset and the rune offset inside
// it. offset == Len() resolves to the end of the last non-empty leaf.
// Empty leaves are never returned.
func (idx *Index) NodeAt(offset int) (*html.Node, int, bool) {
	if offset < 0 || offset > len(idx.runes) || len(idx.runes) == 0 {
		return nil, 0, false
	}
	if offset == len(idx.runes) {
		for i := len(idx.leaves) - 1; i >= 0; i-- {
			if l := idx.leaves[i]; l.Len > 0 {
				return l.Node, l.Len, true
			}
		}
		return nil, 0, false
	}

	// First leaf whose end lies beyond offset; empty leaves have End == Start
	// and are skipped by the strict comparison.
	i := sort.Search(len(idx.leaves), func(i int) bool {
		return idx.leaves[i].End() > offset
	})
	if i == len(idx.leaves) {
		return nil, 0, false
	}
	l := idx.leaves[i]
	return l.Node, offset - l.Start, true
}

// OffsetOf maps a position inside a text node back to a flat offset.
func (idx *Index) OffsetOf(n *html.Node, local int) (int, bool) {
	i, ok := idx.byNode[n]
	if !ok {
		return 0, false
	}
	l := idx.leaves[i]
	if local < 0 || local > l.Len {
		return 0, false
	}
	return l.Start + local, true
}

// OffsetBefore returns the offset of the first character at or after the
// start of n in document order.
func (idx *Index) OffsetBefore(n *html.Node) (int, bool) {
	s, ok := idx.spans[n]
	if !ok {
		return 0, false
	}
	return idx.firstLeafFrom(s.pre), true
}

// OffsetAfter returns the offset just past the last character of n's
// subtree.
func (idx *Index) OffsetAfter(n *html.Node) (int, bool) {
	s, ok := idx.spans[n]
	if !ok {
		return 0, false
	}
	return idx.firstLeafFrom(s.last + 1), true
}

func (idx *Index) firstLeafFrom(pre int) int {
	i := sort.Search(len(idx.leaves), func(i int) bool {
		return idx.leaves[i].pre >= pre
	})
	if i == len(idx.leaves) {
		return len(idx.runes)
	}
	return idx.leaves[i].Start
}

// Intersect returns the leaves overlapping [start, end) together with the
// rune sub-range of each leaf that falls inside it.
func (idx *Index) Intersect(start, end int) []Segment {
	var out []Segment
	for _, l := range idx.leaves {
		if l.Len == 0 || l.End() <= start {
			continue
		}
		if l.Start >= end {
			break
		}
		from := max(start-l.Start, 0)
		to := min(end-l.Start, l.Len)
		out = append(out, Segment{Leaf: l, From: from, To: to})
	}
	return out
}

// Segment is the part of one leaf covered by a range.
type Segment struct {
	Leaf Leaf
	From int
	To   int
}

// ByteIndex converts a rune offset inside s to a byte offset.
func ByteIndex(s string, runeOffset int) int {
	if runeOffset <= 0 {
		return 0
	}
	n := 0
	for i := range s {
		if n == runeOffset {
			return i
		}
		n++
	}
	return len(s)
}
