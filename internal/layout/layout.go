// Package layout places annotation marker cards beside an article.
//
// Highlights are clustered by vertical proximity in one greedy pass, each
// cluster becomes one marker, and markers are pushed down until no two
// overlap. Heights come from a Measurer so the same pass works with real
// rendered heights or with estimates.
package layout

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

const (
	// DefaultThreshold is the distance, in pixels, within which a highlight
	// joins the running average top of the current cluster.
	DefaultThreshold = 80.0
	// DefaultGap separates two placed markers.
	DefaultGap = 12.0
)

// Highlight is one highlight element on screen. An annotation spanning
// several inline elements contributes several highlights.
type Highlight struct {
	Annotation domain.Annotation `json:"annotation"`
	Top        float64           `json:"top"`
	// Order is the document order of the element, used to break ties.
	Order int `json:"order"`
}

// MarkerGroup is one marker card: a single annotation or a cluster of
// nearby ones.
type MarkerGroup struct {
	Key     string              `json:"key"`
	Members []domain.Annotation `json:"members"`
	// Anchor is the running average top of the cluster's highlights.
	Anchor   float64 `json:"anchor"`
	Top      float64 `json:"top"`
	Height   float64 `json:"height"`
	Expanded bool    `json:"expanded"`
}

// Single reports whether the marker shows one annotation.
func (g *MarkerGroup) Single() bool { return len(g.Members) == 1 }

// Bottom returns the placed bottom edge.
func (g *MarkerGroup) Bottom() float64 { return g.Top + g.Height }

// Has reports whether the group holds the annotation.
func (g *MarkerGroup) Has(id int64) bool {
	for _, m := range g.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Config holds the layout constants.
type Config struct {
	Threshold float64
	Gap       float64
}

// DefaultConfig returns the constants the site ships with.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, Gap: DefaultGap}
}

// Layout clusters hs, measures every marker and resolves overlaps. expanded
// reports the expand state of a cluster key; nil means all collapsed.
func Layout(hs []Highlight, m Measurer, expanded func(key string) bool, cfg Config) []MarkerGroup {
	groups := Cluster(hs, cfg.Threshold)
	for i := range groups {
		g := &groups[i]
		g.Expanded = !g.Single() && expanded != nil && expanded(g.Key)
	}
	Place(groups, m, cfg.Gap)
	return groups
}

type cluster struct {
	members []domain.Annotation
	sum     float64
	n       int
}

func (c *cluster) avg() float64 { return c.sum / float64(c.n) }

// Cluster groups highlights in one left-to-right greedy pass over their
// tops. A highlight joins the most recently opened cluster when it lies
// within threshold of that cluster's running average; otherwise it opens a
// new one. Every annotation is counted once, at its topmost element.
func Cluster(hs []Highlight, threshold float64) []MarkerGroup {
	sorted := firstPerAnnotation(hs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Top != sorted[j].Top {
			return sorted[i].Top < sorted[j].Top
		}
		return sorted[i].Order < sorted[j].Order
	})

	var open []*cluster
	for _, h := range sorted {
		if n := len(open); n > 0 {
			last := open[n-1]
			if math.Abs(h.Top-last.avg()) < threshold {
				last.members = append(last.members, h.Annotation)
				last.sum += h.Top
				last.n++
				continue
			}
		}
		open = append(open, &cluster{members: []domain.Annotation{h.Annotation}, sum: h.Top, n: 1})
	}

	groups := make([]MarkerGroup, 0, len(open))
	for _, c := range open {
		groups = append(groups, MarkerGroup{
			Key:     keyOf(c.members),
			Members: c.members,
			Anchor:  c.avg(),
			Top:     c.avg(),
		})
	}
	return groups
}

// Place measures every group and assigns tops top-to-bottom: the first
// group sits at its anchor, each following one at
// max(anchor, previous bottom + gap).
func Place(groups []MarkerGroup, m Measurer, gap float64) {
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Anchor < groups[j].Anchor })

	floor := math.Inf(-1)
	for i := range groups {
		g := &groups[i]
		g.Height = m.Measure(g)
		g.Top = math.Max(g.Anchor, floor)
		floor = g.Bottom() + gap
	}
}

// firstPerAnnotation keeps, for every annotation, the element with the
// smallest top.
func firstPerAnnotation(hs []Highlight) []Highlight {
	at := make(map[int64]int, len(hs))
	out := make([]Highlight, 0, len(hs))
	for _, h := range hs {
		i, seen := at[h.Annotation.ID]
		if !seen {
			at[h.Annotation.ID] = len(out)
			out = append(out, h)
			continue
		}
		if h.Top < out[i].Top || (h.Top == out[i].Top && h.Order < out[i].Order) {
			out[i] = h
		}
	}
	return out
}

// keyOf derives a cluster key from its member ids, so expand state
// survives a re-run that yields the same cluster.
func keyOf(members []domain.Annotation) string {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	b.WriteString("g")
	for _, id := range ids {
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}
