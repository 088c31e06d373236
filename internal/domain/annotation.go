package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Limits applied to user supplied annotation fields.
const (
	MaxCommentLength = 2000
	MaxAuthorLength  = 100
	MaxSnippetLength = 5000
)

var (
	ErrInvalidSlug    = errors.New("article slug is required")
	ErrInvalidComment = errors.New("comment text is required")
	ErrInvalidOffsets = errors.New("invalid offsets")
	ErrInvalidColor   = errors.New("unknown color")
	ErrInvalidText    = errors.New("invalid snippet text")
	ErrInvalidAuthor  = errors.New("invalid author name")
)

// Annotation is a reader comment anchored to a character range of an
// article's flattened visible text.
//
// Offsets count runes of the flattened text. Both are set or both are nil;
// an annotation without offsets can still be listed but never re-applied.
type Annotation struct {
	// ─────────────────────────────
	// Identity (assigned by storage)
	// ─────────────────────────────

	ID          int64  `json:"id"`
	ArticleSlug string `json:"articleSlug"`

	// ─────────────────────────────
	// Anchor
	// ─────────────────────────────

	// HighlightedText is the literal text captured at creation time.
	HighlightedText *string `json:"highlightedText"`
	StartOffset     *int    `json:"startOffset"`
	EndOffset       *int    `json:"endOffset"`

	// ─────────────────────────────
	// Presentation
	// ─────────────────────────────

	CommentText string    `json:"commentText"`
	Color       string    `json:"color"`
	AuthorName  *string   `json:"authorName"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Anchored reports whether the annotation carries a usable offset pair.
func (a *Annotation) Anchored() bool {
	return a.StartOffset != nil && a.EndOffset != nil && *a.EndOffset > *a.StartOffset && *a.StartOffset >= 0
}

// Span returns the offset pair. Only meaningful when Anchored is true.
func (a *Annotation) Span() (int, int) {
	if a.StartOffset == nil || a.EndOffset == nil {
		return 0, 0
	}
	return *a.StartOffset, *a.EndOffset
}

// Author returns the display name, "Anonymous" when unset.
func (a *Annotation) Author() string {
	if a.AuthorName == nil || strings.TrimSpace(*a.AuthorName) == "" {
		return "Anonymous"
	}
	return strings.TrimSpace(*a.AuthorName)
}

// AuthorHandle returns the handle without its leading "@" when the author
// name is a social handle.
func (a *Annotation) AuthorHandle() (string, bool) {
	name := a.Author()
	if !strings.HasPrefix(name, "@") || len(name) < 2 {
		return "", false
	}
	return name[1:], true
}

// NewAnnotation is the payload posted to storage when a reader submits a
// comment.
type NewAnnotation struct {
	ArticleSlug     string  `json:"articleSlug"`
	HighlightedText *string `json:"highlightedText"`
	CommentText     string  `json:"commentText"`
	StartOffset     *int    `json:"startOffset"`
	EndOffset       *int    `json:"endOffset"`
	Color           string  `json:"color"`
	AuthorName      *string `json:"authorName"`
}

// Normalize trims free-text fields and defaults the color.
func (n *NewAnnotation) Normalize() {
	n.ArticleSlug = strings.TrimSpace(n.ArticleSlug)
	n.CommentText = strings.TrimSpace(n.CommentText)
	if n.AuthorName != nil {
		name := strings.TrimSpace(*n.AuthorName)
		if name == "" {
			n.AuthorName = nil
		} else {
			n.AuthorName = &name
		}
	}
	if n.Color == "" {
		n.Color = string(ColorYellow)
	}
}

// Validate checks the payload. Call Normalize first.
func (n *NewAnnotation) Validate() error {
	if n.ArticleSlug == "" {
		return ErrInvalidSlug
	}
	if n.CommentText == "" {
		return ErrInvalidComment
	}
	if utf8.RuneCountInString(n.CommentText) > MaxCommentLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidComment, MaxCommentLength)
	}
	if n.HighlightedText != nil && utf8.RuneCountInString(*n.HighlightedText) > MaxSnippetLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidText, MaxSnippetLength)
	}
	if n.AuthorName != nil && utf8.RuneCountInString(*n.AuthorName) > MaxAuthorLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidAuthor, MaxAuthorLength)
	}
	if (n.StartOffset == nil) != (n.EndOffset == nil) {
		return fmt.Errorf("%w: start and end must be set together", ErrInvalidOffsets)
	}
	if n.StartOffset != nil {
		if *n.StartOffset < 0 || *n.EndOffset <= *n.StartOffset {
			return fmt.Errorf("%w: [%d, %d)", ErrInvalidOffsets, *n.StartOffset, *n.EndOffset)
		}
	}
	if _, ok := LookupColor(n.Color); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidColor, n.Color)
	}
	return nil
}

// Build turns a validated payload into a stored annotation.
func (n *NewAnnotation) Build(id int64, now time.Time) *Annotation {
	return &Annotation{
		ID:              id,
		ArticleSlug:     n.ArticleSlug,
		HighlightedText: n.HighlightedText,
		CommentText:     n.CommentText,
		StartOffset:     n.StartOffset,
		EndOffset:       n.EndOffset,
		Color:           n.Color,
		AuthorName:      n.AuthorName,
		CreatedAt:       now.UTC(),
	}
}

// IsValidation reports whether err is a payload validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{ErrInvalidSlug, ErrInvalidComment, ErrInvalidOffsets, ErrInvalidColor, ErrInvalidText, ErrInvalidAuthor} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IntPtr and StringPtr are small helpers for the optional fields.
func IntPtr(v int) *int          { return &v }
func StringPtr(v string) *string { return &v }
