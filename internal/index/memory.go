package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/domain"
)

// MemoryIndex holds the loaded articles. Reloads swap the whole set; readers
// never see a partial reload.
type MemoryIndex struct {
	mu         sync.RWMutex
	articles   map[string]*domain.Article // slug -> Article
	lastReload time.Time
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		articles: make(map[string]*domain.Article),
	}
}

// UpdateArticles replaces all articles in the index
func (idx *MemoryIndex) UpdateArticles(articles []*domain.Article) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.articles = make(map[string]*domain.Article, len(articles))
	for _, a := range articles {
		idx.articles[a.Slug] = a
	}
	idx.lastReload = time.Now()
}

// GetArticle retrieves an article by slug
func (idx *MemoryIndex) GetArticle(slug string) (*domain.Article, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	a, ok := idx.articles[slug]
	return a, ok
}

// HasArticle reports whether slug is loaded.
func (idx *MemoryIndex) HasArticle(slug string) bool {
	_, ok := idx.GetArticle(slug)
	return ok
}

// GetAllArticles returns all articles, newest first.
func (idx *MemoryIndex) GetAllArticles() []*domain.Article {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	articles := make([]*domain.Article, 0, len(idx.articles))
	for _, a := range idx.articles {
		articles = append(articles, a)
	}
	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].Date.Equal(articles[j].Date) {
			return articles[i].Date.After(articles[j].Date)
		}
		return articles[i].Slug < articles[j].Slug
	})
	return articles
}

// Slugs returns the loaded slugs as a set.
func (idx *MemoryIndex) Slugs() map[string]bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string]bool, len(idx.articles))
	for slug := range idx.articles {
		out[slug] = true
	}
	return out
}

// Count returns the number of articles in the index
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.articles)
}

// GetLastReload returns the timestamp of the last reload
func (idx *MemoryIndex) GetLastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
