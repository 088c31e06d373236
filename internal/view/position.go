package view

import (
	"math"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Positioner reports the vertical offset of an element from the top of the
// article, in pixels.
type Positioner interface {
	Top(n *html.Node) (float64, bool)
}

// blocks start a new line and add a gap before themselves.
var blocks = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"pre": true, "ul": true, "ol": true, "li": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"figure": true, "figcaption": true, "hr": true, "header": true, "footer": true,
}

// Flow estimates element positions from text flow without a layout engine:
// text wraps every CharsPerLine runes and each block adds BlockGap. It is
// what the server uses when no client measured the page.
type Flow struct {
	LineHeight   float64
	CharsPerLine int
	BlockGap     float64
}

// DefaultFlow matches the article column of the site.
func DefaultFlow() Flow {
	return Flow{LineHeight: 28, CharsPerLine: 70, BlockGap: 16}
}

// Measure walks root once and returns the positions of every element and
// text node under it. root itself is the article container at offset 0.
func (f Flow) Measure(root *html.Node) FlowPositions {
	if f.CharsPerLine <= 0 {
		f.CharsPerLine = DefaultFlow().CharsPerLine
	}
	w := &flowWalker{f: f, tops: make(map[*html.Node]float64)}
	w.tops[root] = 0
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	return FlowPositions{tops: w.tops}
}

// FlowPositions is the result of one Flow pass.
type FlowPositions struct {
	tops map[*html.Node]float64
}

// Top returns the estimated top of n. Nodes added after the pass are
// unknown.
func (p FlowPositions) Top(n *html.Node) (float64, bool) {
	t, ok := p.tops[n]
	return t, ok
}

type flowWalker struct {
	f    Flow
	y    float64 // top of the current line box
	col  int     // runes already on the current block's lines
	tops map[*html.Node]float64
}

func (w *flowWalker) cursor() float64 {
	return w.y + float64(w.col/w.f.CharsPerLine)*w.f.LineHeight
}

func (w *flowWalker) breakLine() {
	if w.col > 0 {
		w.y += math.Ceil(float64(w.col)/float64(w.f.CharsPerLine)) * w.f.LineHeight
		w.col = 0
	}
}

func (w *flowWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.tops[n] = w.cursor()
		w.col += utf8.RuneCountInString(n.Data)
		return
	case html.ElementNode:
		block := blocks[n.Data]
		if block {
			w.breakLine()
			w.y += w.f.BlockGap
		}
		if n.Data == "br" {
			w.breakLine()
		}
		w.tops[n] = w.cursor()
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			w.walk(c)
		}
		if block {
			w.breakLine()
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}
