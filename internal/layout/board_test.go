package layout

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

func TestBoardToggleReflows(t *testing.T) {
	b := NewBoard(DefaultEstimate(), DefaultConfig())
	groups := b.Update([]Highlight{hl(1, 100, 0), hl(2, 120, 1), hl(3, 200, 2)})
	if got, want := keys(groups), []string{"g-1-2", "g-3"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Update() keys = %v, want %v", got, want)
	}
	collapsedTop := groups[1].Top

	if !b.Toggle("g-1-2") {
		t.Fatal("Toggle(g-1-2) = false, want true")
	}
	groups = b.Groups()
	if !groups[0].Expanded {
		t.Error("g-1-2 should be expanded")
	}
	if groups[1].Top <= collapsedTop {
		t.Errorf("g-3 top = %v, want below %v after expanding", groups[1].Top, collapsedTop)
	}
	if groups[1].Top < groups[0].Bottom()+DefaultGap {
		t.Errorf("g-3 top = %v overlaps g-1-2 ending at %v", groups[1].Top, groups[0].Bottom())
	}

	if !b.Toggle("g-1-2") {
		t.Fatal("second Toggle(g-1-2) = false, want true")
	}
	if got := b.Groups()[1].Top; got != collapsedTop {
		t.Errorf("g-3 top after collapse = %v, want %v", got, collapsedTop)
	}

	if b.Toggle("g-3") {
		t.Error("single cards do not expand")
	}
	if b.Toggle("missing") {
		t.Error("Toggle() on an unknown key should fail")
	}
}

func TestBoardUpdateKeepsExpandState(t *testing.T) {
	b := NewBoard(DefaultEstimate(), DefaultConfig())
	b.Update([]Highlight{hl(1, 100, 0), hl(2, 120, 1)})
	if !b.Toggle("g-1-2") {
		t.Fatal("Toggle(g-1-2) = false, want true")
	}

	// Same cluster after a new annotation elsewhere.
	groups := b.Update([]Highlight{hl(1, 100, 0), hl(2, 120, 1), hl(5, 900, 2)})
	if !groups[0].Expanded {
		t.Error("g-1-2 should stay expanded")
	}

	// The cluster changes membership and starts collapsed again.
	groups = b.Update([]Highlight{hl(1, 100, 0), hl(2, 120, 1), hl(6, 130, 2)})
	if groups[0].Key != "g-1-2-6" {
		t.Fatalf("first key = %q, want g-1-2-6", groups[0].Key)
	}
	if groups[0].Expanded {
		t.Error("a new cluster starts collapsed")
	}
	if b.Expanded("g-1-2") {
		t.Error("the stale key should be forgotten")
	}
}

func TestBoardTapAtMostOneOpen(t *testing.T) {
	b := NewBoard(nil, DefaultConfig())
	b.Update([]Highlight{hl(1, 0, 0), hl(2, 500, 1)})

	if got := b.Tap(1); got != 1 || !b.Visible(1) {
		t.Fatalf("Tap(1) = %d, visible %v", got, b.Visible(1))
	}

	if got := b.Tap(2); got != 2 {
		t.Errorf("Tap(2) = %d, want 2", got)
	}
	if b.Visible(1) || !b.Visible(2) {
		t.Error("only card 2 should be visible")
	}

	if got := b.Tap(2); got != 0 || b.Visible(2) {
		t.Errorf("second Tap(2) = %d, want the card closed", got)
	}

	if got := b.Tap(42); got != 0 {
		t.Errorf("Tap(42) = %d, want 0", got)
	}

	b.Tap(1)
	b.Update([]Highlight{hl(2, 500, 1)})
	if b.Visible(1) {
		t.Error("a removed annotation cannot stay open")
	}
}

func TestBoardHover(t *testing.T) {
	b := NewBoard(nil, DefaultConfig())
	b.Update([]Highlight{hl(1, 0, 0), hl(2, 20, 1)})

	g, ok := b.Hover(2)
	if !ok {
		t.Fatal("Hover(2) not found")
	}
	if g.Key != "g-1-2" {
		t.Errorf("Hover(2) group = %q, want g-1-2", g.Key)
	}
	if b.Hovered() != 2 {
		t.Errorf("Hovered() = %d, want 2", b.Hovered())
	}

	b.Unhover()
	if b.Hovered() != 0 {
		t.Errorf("Hovered() after Unhover = %d, want 0", b.Hovered())
	}

	if _, ok := b.Hover(99); ok {
		t.Error("Hover(99) should fail")
	}
}

func TestBoardSetMeasurer(t *testing.T) {
	b := NewBoard(fixed(10), DefaultConfig())
	b.Update([]Highlight{hl(1, 0, 0), hl(2, 100, 1)})
	if got := b.Groups()[1].Top; got != 100 {
		t.Fatalf("g-2 top = %v, want 100", got)
	}

	groups := b.SetMeasurer(Heights{Known: map[string]float64{"g-1": 150}, Fallback: fixed(10)})
	if got := groups[1].Top; got != 162 {
		t.Errorf("g-2 top after measuring = %v, want 162", got)
	}
}

func TestRendererCard(t *testing.T) {
	r := NewRenderer()
	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)

	a := note(1, "Nice **point** <script>alert(1)</script>")
	a.AuthorName = domain.StringPtr("@gopher")
	a.Color = string(domain.ColorBlue)
	single := MarkerGroup{Key: "g-1", Members: []domain.Annotation{a}, Top: 42.5}

	out, err := r.Card(single, now)
	if err != nil {
		t.Fatalf("Card() error = %v", err)
	}
	for _, want := range []string{
		`style="top: 42.5px"`,
		`<strong>point</strong>`,
		`href="https://twitter.com/gopher"`,
		`#3b82f6`,
		`3 hours ago`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Card() missing %q in %s", want, out)
		}
	}
	if strings.Contains(out, `<script>`) {
		t.Errorf("Card() leaked raw HTML: %s", out)
	}

	group := MarkerGroup{Key: "g-1-2", Members: []domain.Annotation{note(1, "a"), note(2, "b")}}
	out, err = r.Card(group, now)
	if err != nil {
		t.Fatalf("Card() error = %v", err)
	}
	if !strings.Contains(out, `2 annotations`) {
		t.Errorf("collapsed card missing the count: %s", out)
	}
	if n := strings.Count(out, `class="dot"`); n != 2 {
		t.Errorf("collapsed card has %d dots, want 2", n)
	}
	if strings.Contains(out, `class="comment"`) {
		t.Error("collapsed card should not show comments")
	}

	group.Expanded = true
	out, err = r.Card(group, now)
	if err != nil {
		t.Fatalf("Card() error = %v", err)
	}
	if n := strings.Count(out, `class="comment"`); n != 2 {
		t.Errorf("expanded card has %d comments, want 2", n)
	}
	if !strings.Contains(out, `Anonymous`) {
		t.Error("expanded card should name anonymous authors")
	}
}

func TestRendererBoard(t *testing.T) {
	r := NewRenderer()
	b := NewBoard(nil, DefaultConfig())
	groups := b.Update([]Highlight{hl(1, 0, 0), hl(2, 400, 1)})

	out, err := r.Board(groups, time.Now())
	if err != nil {
		t.Fatalf("Board() error = %v", err)
	}
	if !strings.HasPrefix(out, `<div class="annotations-container"`) {
		t.Errorf("Board() = %s", out)
	}
	if n := strings.Count(out, `class="annotation-marker"`); n != 2 {
		t.Errorf("Board() has %d markers, want 2", n)
	}
}
