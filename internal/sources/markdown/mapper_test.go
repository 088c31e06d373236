package markdown

import (
	"strings"
	"testing"
)

func TestMapArticles(t *testing.T) {
	files := []File{
		{Path: "/c/First Post.md", Header: FrontMatter{Title: "First"}, Body: []byte("The *quick* brown fox\n")},
		{Path: "/c/custom.md", Header: FrontMatter{Slug: "chosen"}, Body: []byte("text\n")},
		{Path: "/c/draft.md", Header: FrontMatter{Draft: true}, Body: []byte("wip\n")},
	}

	articles, err := NewMapper().MapArticles(files)
	if err != nil {
		t.Fatalf("MapArticles() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("MapArticles() returned %d articles, want 2", len(articles))
	}

	first := articles[0]
	if first.Slug != "first-post" {
		t.Errorf("Slug = %q, want %q", first.Slug, "first-post")
	}
	if !strings.Contains(first.HTML, "<em>quick</em>") {
		t.Errorf("HTML = %q, want rendered emphasis", first.HTML)
	}
	if articles[1].Slug != "chosen" || articles[1].Title != "chosen" {
		t.Errorf("second article = %q/%q, want chosen/chosen", articles[1].Slug, articles[1].Title)
	}
}

func TestMapArticlesDuplicateSlug(t *testing.T) {
	files := []File{
		{Path: "/a/post.md", Body: []byte("a")},
		{Path: "/b/post.md", Body: []byte("b")},
	}
	if _, err := NewMapper().MapArticles(files); err == nil {
		t.Error("MapArticles() with duplicate slugs should return error")
	}
}

func TestMapArticlesEmpty(t *testing.T) {
	if _, err := NewMapper().MapArticles(nil); err == nil {
		t.Error("MapArticles() with no files should return error")
	}
}

func TestRenderCodeBlock(t *testing.T) {
	out, err := NewMapper().Render([]byte("```go\nfunc main() {}\n```\n"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "<pre") || !strings.Contains(out, "main") {
		t.Errorf("Render() = %q, want highlighted code block", out)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"First Post":        "first-post",
		"  --Go & Rust--  ": "go-rust",
		"already-a-slug":    "already-a-slug",
		"!!!":               "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
