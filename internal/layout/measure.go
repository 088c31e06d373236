package layout

import (
	"math"
	"unicode/utf8"
)

// Measurer returns the rendered height of a marker in its current state.
type Measurer interface {
	Measure(g *MarkerGroup) float64
}

// MeasureFunc adapts a function to Measurer.
type MeasureFunc func(g *MarkerGroup) float64

func (f MeasureFunc) Measure(g *MarkerGroup) float64 { return f(g) }

// Heights reports heights measured by a client, keyed by group key. Groups
// it does not know fall back to Fallback.
type Heights struct {
	Known    map[string]float64
	Fallback Measurer
}

func (h Heights) Measure(g *MarkerGroup) float64 {
	if v, ok := h.Known[g.Key]; ok && v > 0 {
		return v
	}
	return h.Fallback.Measure(g)
}

// EstimateMeasurer guesses card heights from their text when no real
// measurement is available, such as when rendering on the server.
type EstimateMeasurer struct {
	Padding      float64 // top plus bottom padding of a card
	HeaderHeight float64 // author row or collapsed summary row
	LineHeight   float64
	CharsPerLine int
	DateHeight   float64
	ItemSpacing  float64 // between members of an expanded group
}

// DefaultEstimate matches the stylesheet of a 240px wide card.
func DefaultEstimate() EstimateMeasurer {
	return EstimateMeasurer{
		Padding:      24,
		HeaderHeight: 22,
		LineHeight:   20,
		CharsPerLine: 32,
		DateHeight:   18,
		ItemSpacing:  12,
	}
}

func (e EstimateMeasurer) Measure(g *MarkerGroup) float64 {
	if !g.Single() && !g.Expanded {
		return e.Padding + e.HeaderHeight
	}

	h := e.Padding
	if !g.Single() {
		h += e.HeaderHeight
	}
	for i := range g.Members {
		if i > 0 {
			h += e.ItemSpacing
		}
		h += e.HeaderHeight + e.commentHeight(g.Members[i].CommentText) + e.DateHeight
	}
	return h
}

func (e EstimateMeasurer) commentHeight(text string) float64 {
	per := e.CharsPerLine
	if per <= 0 {
		per = 1
	}
	n := utf8.RuneCountInString(text)
	lines := math.Ceil(float64(n) / float64(per))
	if lines < 1 {
		lines = 1
	}
	return lines * e.LineHeight
}
