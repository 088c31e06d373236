// Package highlight re-applies stored annotations to a rendered article by
// wrapping their offset ranges in <mark> elements, and removes those wraps
// again so the pass can be repeated.
package highlight

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/annotate/internal/dom"
	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/flatten"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/resolve"
)

// Attributes identifying the elements this package creates.
const (
	AttrAnnotationID = "data-annotation-id"
	AttrTemporary    = "data-temp-highlight"
	AttrShare        = "data-share-highlight"

	ClassAnnotation = "annotation-highlight"
	ClassTemporary  = "temp-highlight"
	ClassPulse      = "share-highlight pulse"
)

// Applied is one annotation that made it onto the page. A single annotation
// may own several marks when its range crosses inline elements.
type Applied struct {
	Annotation domain.Annotation
	Range      resolve.Range
	Marks      []*html.Node
}

// ID returns the owning annotation id.
func (a Applied) ID() int64 { return a.Annotation.ID }

// Styler builds the wrap style of an annotation.
type Styler func(a *domain.Annotation) Style

type options struct {
	log    logger.Logger
	styler Styler
}

// Option tunes Apply.
type Option func(*options)

// WithLogger sets the logger skipped annotations are reported to.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStyler replaces the default annotation style.
func WithStyler(s Styler) Option {
	return func(o *options) { o.styler = s }
}

// AnnotationStyle is the default style: a dotted underline in the
// annotation's color carrying a back-reference to its id.
func AnnotationStyle(a *domain.Annotation) Style {
	swatch := domain.SwatchFor(a.Color)
	return Style{
		Tag: "mark",
		Attrs: []html.Attribute{
			{Key: "class", Val: ClassAnnotation},
			{Key: AttrAnnotationID, Val: strconv.FormatInt(a.ID, 10)},
			{Key: "data-color", Val: string(swatch.Name)},
			{Key: "style", Val: "background-color: transparent; border-bottom: 2px dotted " + swatch.Dot + "; cursor: pointer"},
		},
	}
}

// TemporaryStyle marks the live selection while the popup is open.
func TemporaryStyle() Style {
	return Style{
		Tag: "mark",
		Attrs: []html.Attribute{
			{Key: "class", Val: ClassTemporary},
			{Key: AttrTemporary, Val: "true"},
			{Key: "style", Val: "background-color: rgba(234, 179, 8, 0.2); padding: 2px 0; border-radius: 2px"},
		},
	}
}

// ShareStyle marks a snippet reached through a shared link.
func ShareStyle() Style {
	return Style{
		Tag: "mark",
		Attrs: []html.Attribute{
			{Key: "class", Val: ClassPulse},
			{Key: AttrShare, Val: "true"},
			{Key: "style", Val: "background-color: rgba(234, 179, 8, 0.4); padding: 2px 4px; border-radius: 2px; transition: background-color 0.3s ease"},
		},
	}
}

// Apply wraps every anchored annotation against a single flatten of root.
// Annotations whose offsets do not fit the current text, or whose range
// cannot be wrapped, are skipped and logged; they never fail the call.
func Apply(root *html.Node, annotations []domain.Annotation, opts ...Option) []Applied {
	o := options{log: logger.NewNop(), styler: AnnotationStyle}
	for _, fn := range opts {
		fn(&o)
	}

	idx := flatten.Flatten(root)

	jobs := make([]*job, 0, len(annotations))
	owners := make([]int, 0, len(annotations))
	for i := range annotations {
		a := &annotations[i]
		if !a.Anchored() {
			o.log.Debug("annotation has no usable offsets, list only",
				logger.Int64("annotation_id", a.ID))
			continue
		}
		start, end := a.Span()
		jobs = append(jobs, &job{
			rng:   resolve.Range{Start: start, End: end},
			style: o.styler(a),
		})
		owners = append(owners, i)
	}

	run(idx, jobs)

	applied := make([]Applied, 0, len(jobs))
	for k, j := range jobs {
		a := annotations[owners[k]]
		if j.err != nil {
			o.log.Debug("skipping annotation",
				logger.Int64("annotation_id", a.ID),
				logger.String("range", j.rng.String()),
				logger.Error(j.err))
			continue
		}
		applied = append(applied, Applied{Annotation: a, Range: j.rng, Marks: j.marks})
	}
	return applied
}

// Clear removes every element this package created under root and merges
// the text it split, restoring the tree Apply started from.
func Clear(root *html.Node) int {
	marks := dom.FindAll(root, isOwnMark)
	// Unwrap innermost first so nested marks are handled before their parents.
	for i := len(marks) - 1; i >= 0; i-- {
		dom.Unwrap(marks[i])
	}
	if len(marks) > 0 {
		dom.MergeText(root)
	}
	return len(marks)
}

// ClearTemporary removes only the live-selection marks.
func ClearTemporary(root *html.Node) int {
	return clearAttr(root, AttrTemporary)
}

// ClearShare removes only the pulse marks of a relocated snippet.
func ClearShare(root *html.Node) int {
	return clearAttr(root, AttrShare)
}

func clearAttr(root *html.Node, attr string) int {
	marks := dom.FindAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && dom.HasAttr(n, attr)
	})
	for i := len(marks) - 1; i >= 0; i-- {
		dom.Unwrap(marks[i])
	}
	if len(marks) > 0 {
		dom.MergeText(root)
	}
	return len(marks)
}

// Marks returns the annotation marks under root in document order.
func Marks(root *html.Node) []*html.Node {
	return dom.FindAll(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && dom.HasAttr(n, AttrAnnotationID)
	})
}

// Locate finds text by whitespace-insensitive search and wraps it in a
// share pulse mark.
func Locate(root *html.Node, text string) (resolve.Range, []*html.Node, error) {
	idx := flatten.Flatten(root)
	rng, err := resolve.FromSearch(idx, text)
	if err != nil {
		return resolve.Range{}, nil, err
	}
	marks, err := Wrap(idx, rng, ShareStyle())
	if err != nil {
		return rng, nil, err
	}
	return rng, marks, nil
}

func isOwnMark(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	return dom.HasAttr(n, AttrAnnotationID) || dom.HasAttr(n, AttrTemporary) || dom.HasAttr(n, AttrShare)
}
