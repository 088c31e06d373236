package layout

// Board holds the markers of one article view together with their
// interaction state. Every change that can alter a card's height re-runs
// the full clustering and placement pass.
//
// A Board is not safe for concurrent use.
type Board struct {
	cfg      Config
	measurer Measurer

	highlights []Highlight
	groups     []MarkerGroup
	expanded   map[string]bool

	// tapped is the annotation whose card is open on limited-pointer
	// devices, 0 when none.
	tapped  int64
	hovered int64
}

// NewBoard returns an empty board.
func NewBoard(m Measurer, cfg Config) *Board {
	if m == nil {
		m = DefaultEstimate()
	}
	return &Board{
		cfg:      cfg,
		measurer: m,
		expanded: make(map[string]bool),
	}
}

// Update replaces the highlights and re-runs the layout. Expand state of
// clusters that no longer exist is dropped.
func (b *Board) Update(hs []Highlight) []MarkerGroup {
	b.highlights = append(b.highlights[:0], hs...)
	b.relayout()

	live := make(map[string]bool, len(b.groups))
	for _, g := range b.groups {
		live[g.Key] = true
	}
	for k := range b.expanded {
		if !live[k] {
			delete(b.expanded, k)
		}
	}
	if b.tapped != 0 && b.groupOf(b.tapped) < 0 {
		b.tapped = 0
	}
	return b.Groups()
}

// SetMeasurer swaps the height source, for instance once real heights have
// been measured, and re-places the markers.
func (b *Board) SetMeasurer(m Measurer) []MarkerGroup {
	b.measurer = m
	b.relayout()
	return b.Groups()
}

// Groups returns a copy of the current markers in placement order.
func (b *Board) Groups() []MarkerGroup {
	out := make([]MarkerGroup, len(b.groups))
	copy(out, b.groups)
	return out
}

// Toggle expands or collapses a cluster and re-runs the layout. It reports
// false for unknown keys and single-annotation markers, which have nothing
// to expand.
func (b *Board) Toggle(key string) bool {
	for _, g := range b.groups {
		if g.Key != key {
			continue
		}
		if g.Single() {
			return false
		}
		if b.expanded[key] {
			delete(b.expanded, key)
		} else {
			b.expanded[key] = true
		}
		b.relayout()
		return true
	}
	return false
}

// Tap toggles the card of the tapped highlight on limited-pointer devices.
// At most one card is open: opening one closes the previous. It returns the
// annotation whose card is now open, 0 when none.
func (b *Board) Tap(annotationID int64) int64 {
	switch {
	case b.groupOf(annotationID) < 0:
		b.tapped = 0
	case b.tapped == annotationID:
		b.tapped = 0
	default:
		b.tapped = annotationID
	}
	return b.tapped
}

// Visible reports whether the card holding annotationID is shown on
// limited-pointer devices.
func (b *Board) Visible(annotationID int64) bool {
	return b.tapped != 0 && b.tapped == annotationID
}

// Hover associates a highlight with its marker on pointer devices.
func (b *Board) Hover(annotationID int64) (MarkerGroup, bool) {
	i := b.groupOf(annotationID)
	if i < 0 {
		b.hovered = 0
		return MarkerGroup{}, false
	}
	b.hovered = annotationID
	return b.groups[i], true
}

// Unhover clears the hover association.
func (b *Board) Unhover() { b.hovered = 0 }

// Hovered returns the hovered annotation, 0 when none.
func (b *Board) Hovered() int64 { return b.hovered }

// Expanded reports the expand state of a cluster.
func (b *Board) Expanded(key string) bool { return b.expanded[key] }

func (b *Board) relayout() {
	b.groups = Layout(b.highlights, b.measurer, b.Expanded, b.cfg)
}

func (b *Board) groupOf(annotationID int64) int {
	for i := range b.groups {
		if b.groups[i].Has(annotationID) {
			return i
		}
	}
	return -1
}
