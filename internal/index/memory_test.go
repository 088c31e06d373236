package index

import (
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

func TestNewMemoryIndex(t *testing.T) {
	index := NewMemoryIndex()
	if index == nil {
		t.Fatal("NewMemoryIndex() returned nil")
	}
	if n := len(index.GetAllArticles()); n != 0 {
		t.Errorf("NewMemoryIndex() should start empty, got %v", n)
	}
	if !index.GetLastReload().IsZero() {
		t.Error("NewMemoryIndex() should not have a reload time")
	}
}

func TestUpdateArticlesOverwrites(t *testing.T) {
	index := NewMemoryIndex()

	index.UpdateArticles([]*domain.Article{{Slug: "one"}})
	index.UpdateArticles([]*domain.Article{{Slug: "two"}, {Slug: "three"}})

	if index.Count() != 2 {
		t.Errorf("UpdateArticles() should overwrite, got %v articles want 2", index.Count())
	}
	if index.HasArticle("one") {
		t.Error("UpdateArticles() kept an article from the previous load")
	}
	if _, ok := index.GetArticle("three"); !ok {
		t.Error("GetArticle() did not find a loaded article")
	}
	if index.GetLastReload().IsZero() {
		t.Error("UpdateArticles() should set the reload time")
	}
}

func TestGetAllArticlesNewestFirst(t *testing.T) {
	index := NewMemoryIndex()
	day := 24 * time.Hour
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	index.UpdateArticles([]*domain.Article{
		{Slug: "old", Date: base},
		{Slug: "new", Date: base.Add(2 * day)},
		{Slug: "b-same", Date: base.Add(day)},
		{Slug: "a-same", Date: base.Add(day)},
	})

	got := index.GetAllArticles()
	want := []string{"new", "a-same", "b-same", "old"}
	for i, a := range got {
		if a.Slug != want[i] {
			t.Errorf("GetAllArticles()[%d] = %q, want %q", i, a.Slug, want[i])
		}
	}
}

func TestSlugs(t *testing.T) {
	index := NewMemoryIndex()
	index.UpdateArticles([]*domain.Article{{Slug: "a"}, {Slug: "b"}})

	slugs := index.Slugs()
	if len(slugs) != 2 || !slugs["a"] || !slugs["b"] {
		t.Errorf("Slugs() = %v, want a and b", slugs)
	}
}

func TestConcurrentAccess(t *testing.T) {
	index := NewMemoryIndex()
	index.UpdateArticles([]*domain.Article{{Slug: "a"}})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = index.GetAllArticles()
			_, _ = index.GetArticle("a")
		}()
		go func() {
			defer wg.Done()
			index.UpdateArticles([]*domain.Article{{Slug: "a"}, {Slug: "b"}})
		}()
	}
	wg.Wait()

	if index.Count() != 2 {
		t.Errorf("Count() = %v, want 2", index.Count())
	}
}
