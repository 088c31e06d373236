package highlight

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/annotate/internal/dom"
	"github.com/MrSnakeDoc/annotate/internal/flatten"
	"github.com/MrSnakeDoc/annotate/internal/resolve"
)

var (
	ErrOutOfRange  = errors.New("range outside flattened text")
	ErrUnwrappable = errors.New("range cannot be wrapped")
)

// Text inside these elements is not rendered as markup; wrapping it would
// change the document's meaning.
var rawText = map[string]bool{
	"script":    true,
	"style":     true,
	"textarea":  true,
	"title":     true,
	"noscript":  true,
	"xmp":       true,
	"iframe":    true,
	"noembed":   true,
	"noframes":  true,
	"plaintext": true,
}

// Style describes the element a highlighted range is wrapped in.
type Style struct {
	Tag   string // defaults to "mark"
	Attrs []html.Attribute
}

func (s Style) element() *html.Node {
	tag := s.Tag
	if tag == "" {
		tag = "mark"
	}
	attrs := make([]html.Attribute, len(s.Attrs))
	copy(attrs, s.Attrs)
	return dom.Element(tag, attrs...)
}

// job is one range to wrap with one style.
type job struct {
	rng   resolve.Range
	style Style
	segs  []flatten.Segment
	err   error
	marks []*html.Node
}

// Wrap wraps rng of the tree indexed by idx in elements built from style and
// returns them in document order. idx must be fresh; it is stale afterwards.
func Wrap(idx *flatten.Index, rng resolve.Range, style Style) ([]*html.Node, error) {
	jobs := []*job{{rng: rng, style: style}}
	run(idx, jobs)
	return jobs[0].marks, jobs[0].err
}

// run wraps every job against one snapshot. Each leaf is split once at the
// union of all cut points, so later jobs never see offsets invalidated by
// earlier ones. A failing job leaves no marks behind.
func run(idx *flatten.Index, jobs []*job) {
	cuts := make(map[*html.Node][]int)

	for _, j := range jobs {
		j.segs, j.err = plan(idx, j.rng)
		if j.err != nil {
			continue
		}
		for _, s := range j.segs {
			cuts[s.Leaf.Node] = append(cuts[s.Leaf.Node], s.From, s.To)
		}
	}

	pieces := make(map[*html.Node]map[int]*html.Node, len(cuts))
	for _, l := range idx.Leaves() {
		if points, ok := cuts[l.Node]; ok {
			pieces[l.Node] = split(l, points)
		}
	}

	for _, j := range jobs {
		if j.err != nil {
			continue
		}
		j.marks, j.err = apply(j, pieces)
	}
}

// plan checks bounds and wrappability without touching the tree.
func plan(idx *flatten.Index, rng resolve.Range) ([]flatten.Segment, error) {
	if rng.Start < 0 || rng.End > idx.Len() || rng.Empty() {
		return nil, fmt.Errorf("%w: %s of %d", ErrOutOfRange, rng, idx.Len())
	}
	segs := idx.Intersect(rng.Start, rng.End)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: %s covers no text", ErrOutOfRange, rng)
	}
	for _, s := range segs {
		parent := s.Leaf.Node.Parent
		if parent == nil {
			return nil, fmt.Errorf("%w: detached text node", ErrUnwrappable)
		}
		if parent.Type == html.ElementNode && rawText[parent.Data] {
			return nil, fmt.Errorf("%w: text inside <%s>", ErrUnwrappable, parent.Data)
		}
	}
	return segs, nil
}

// split cuts a leaf at the given rune offsets and returns the resulting text
// nodes keyed by their starting rune offset inside the original leaf. The
// original node is kept as the first piece.
func split(l flatten.Leaf, points []int) map[int]*html.Node {
	sort.Ints(points)
	bounds := []int{0}
	for _, p := range points {
		if p > bounds[len(bounds)-1] && p < l.Len {
			bounds = append(bounds, p)
		}
	}

	original := l.Node.Data
	out := make(map[int]*html.Node, len(bounds))
	cur := l.Node
	for i, from := range bounds {
		to := l.Len
		if i+1 < len(bounds) {
			to = bounds[i+1]
		}
		data := original[flatten.ByteIndex(original, from):flatten.ByteIndex(original, to)]
		if i == 0 {
			cur.Data = data
			out[from] = cur
			continue
		}
		next := dom.Text(data)
		cur.Parent.InsertBefore(next, cur.NextSibling)
		out[from] = next
		cur = next
	}
	return out
}

// apply wraps the pieces covered by j. Consecutive pieces that are still
// adjacent siblings share one element.
func apply(j *job, pieces map[*html.Node]map[int]*html.Node) (marks []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			for _, m := range marks {
				dom.Unwrap(m)
			}
			marks = nil
			err = fmt.Errorf("%w: %v", ErrUnwrappable, r)
		}
	}()

	for _, s := range j.segs {
		byStart := pieces[s.Leaf.Node]
		starts := make([]int, 0, len(byStart))
		for start := range byStart {
			if start >= s.From && start < s.To {
				starts = append(starts, start)
			}
		}
		sort.Ints(starts)

		var group []*html.Node
		flush := func() {
			if len(group) == 0 {
				return
			}
			marks = append(marks, surround(group, j.style))
			group = nil
		}
		for _, start := range starts {
			n := byStart[start]
			if len(group) > 0 && group[len(group)-1].NextSibling != n {
				flush()
			}
			group = append(group, n)
		}
		flush()
	}
	return marks, nil
}

// surround moves a run of adjacent siblings into a new element.
func surround(nodes []*html.Node, style Style) *html.Node {
	mark := style.element()
	first := nodes[0]
	first.Parent.InsertBefore(mark, first)
	for _, n := range nodes {
		n.Parent.RemoveChild(n)
		mark.AppendChild(n)
	}
	return mark
}
