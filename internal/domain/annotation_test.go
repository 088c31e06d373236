package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewAnnotationValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   NewAnnotation
		wantErr error
	}{
		{
			name: "valid with offsets",
			input: NewAnnotation{
				ArticleSlug: "hello",
				CommentText: "nice",
				StartOffset: IntPtr(4),
				EndOffset:   IntPtr(9),
				Color:       "blue",
			},
		},
		{
			name:  "valid without offsets defaults color",
			input: NewAnnotation{ArticleSlug: "hello", CommentText: "nice"},
		},
		{
			name:    "missing slug",
			input:   NewAnnotation{CommentText: "nice"},
			wantErr: ErrInvalidSlug,
		},
		{
			name:    "blank comment",
			input:   NewAnnotation{ArticleSlug: "hello", CommentText: "   "},
			wantErr: ErrInvalidComment,
		},
		{
			name: "only start offset",
			input: NewAnnotation{
				ArticleSlug: "hello",
				CommentText: "nice",
				StartOffset: IntPtr(1),
			},
			wantErr: ErrInvalidOffsets,
		},
		{
			name: "end not after start",
			input: NewAnnotation{
				ArticleSlug: "hello",
				CommentText: "nice",
				StartOffset: IntPtr(5),
				EndOffset:   IntPtr(5),
			},
			wantErr: ErrInvalidOffsets,
		},
		{
			name:    "unknown color",
			input:   NewAnnotation{ArticleSlug: "hello", CommentText: "nice", Color: "orange"},
			wantErr: ErrInvalidColor,
		},
		{
			name: "comment too long",
			input: NewAnnotation{
				ArticleSlug: "hello",
				CommentText: strings.Repeat("x", MaxCommentLength+1),
			},
			wantErr: ErrInvalidComment,
		},
		{
			name: "highlighted text too long",
			input: NewAnnotation{
				ArticleSlug:     "hello",
				CommentText:     "nice",
				HighlightedText: StringPtr(strings.Repeat("é", MaxSnippetLength+1)),
			},
			wantErr: ErrInvalidText,
		},
		{
			name: "highlighted text at the limit",
			input: NewAnnotation{
				ArticleSlug:     "hello",
				CommentText:     "nice",
				HighlightedText: StringPtr(strings.Repeat("é", MaxSnippetLength)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input
			in.Normalize()
			err := in.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeDropsBlankAuthor(t *testing.T) {
	in := NewAnnotation{ArticleSlug: " a ", CommentText: " c ", AuthorName: StringPtr("  ")}
	in.Normalize()

	if in.AuthorName != nil {
		t.Errorf("AuthorName = %q, want nil", *in.AuthorName)
	}
	if in.ArticleSlug != "a" || in.CommentText != "c" {
		t.Errorf("fields not trimmed: %+v", in)
	}
	if in.Color != string(ColorYellow) {
		t.Errorf("Color = %q, want yellow", in.Color)
	}
}

func TestAnnotationAuthor(t *testing.T) {
	a := Annotation{}
	if got := a.Author(); got != "Anonymous" {
		t.Errorf("Author() = %q, want Anonymous", got)
	}
	if _, ok := a.AuthorHandle(); ok {
		t.Error("AuthorHandle() should be false for anonymous")
	}

	a.AuthorName = StringPtr("@gopher")
	handle, ok := a.AuthorHandle()
	if !ok || handle != "gopher" {
		t.Errorf("AuthorHandle() = %q, %v; want gopher, true", handle, ok)
	}

	a.AuthorName = StringPtr("@")
	if _, ok := a.AuthorHandle(); ok {
		t.Error("a lone @ is not a handle")
	}
}

func TestAnnotationAnchored(t *testing.T) {
	in := NewAnnotation{ArticleSlug: "s", CommentText: "c", StartOffset: IntPtr(0), EndOffset: IntPtr(3)}
	a := in.Build(7, time.Now())
	if !a.Anchored() {
		t.Fatal("expected anchored annotation")
	}
	start, end := a.Span()
	if start != 0 || end != 3 {
		t.Errorf("Span() = (%d, %d), want (0, 3)", start, end)
	}

	a.EndOffset = nil
	if a.Anchored() {
		t.Error("annotation without end offset must not be anchored")
	}
}

func TestSwatchForFallsBackToYellow(t *testing.T) {
	if got := SwatchFor("nope"); got.Name != ColorYellow {
		t.Errorf("SwatchFor(nope) = %s, want yellow", got.Name)
	}
	if got := SwatchFor("pink"); got.Dot != "#ec4899" {
		t.Errorf("SwatchFor(pink).Dot = %s", got.Dot)
	}
}

func TestShareExcerpt(t *testing.T) {
	s := ShareSnippet{Text: "héllo world"}
	if got := s.Excerpt(5); got != "héllo..." {
		t.Errorf("Excerpt(5) = %q", got)
	}
	if got := s.Excerpt(50); got != s.Text {
		t.Errorf("Excerpt(50) = %q", got)
	}
}
