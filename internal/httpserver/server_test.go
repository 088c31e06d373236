package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/domain"
	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/index"
	"github.com/MrSnakeDoc/annotate/internal/layout"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/store/memory"
)

const articleHTML = `<h1>Hello</h1><p>The quick brown fox jumps over the lazy dog.</p>`

type testEnv struct {
	handler http.Handler
	store   *memory.Store
	trigger chan struct{}
}

func newTestEnv(t *testing.T, mutate func(*deps.Deps)) *testEnv {
	t.Helper()

	idx := index.NewMemoryIndex()
	idx.UpdateArticles([]*domain.Article{{
		Slug:     "hello",
		Title:    "Hello",
		HTML:     articleHTML,
		LoadedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}})

	st := memory.New()
	trigger := make(chan struct{}, 1)
	d := deps.Deps{
		Logger:        logger.NewNop(),
		StartTime:     time.Now(),
		Version:       "test",
		Store:         st,
		StoreBackend:  "memory",
		MemoryIndex:   idx,
		Renderer:      layout.NewRenderer(),
		PublicURL:     "https://blog.example.com",
		RenderTTL:     time.Hour,
		RateBurst:     100,
		RatePerMinute: 100,
		ReloadTrigger: trigger,
	}
	if mutate != nil {
		mutate(&d)
	}
	return &testEnv{handler: NewRouter(d, 5*time.Second), store: st, trigger: trigger}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCommentsLifecycle(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/comments", domain.NewAnnotation{
		ArticleSlug:     "hello",
		HighlightedText: domain.StringPtr("quick"),
		CommentText:     "  nice  ",
		StartOffset:     domain.IntPtr(9),
		EndOffset:       domain.IntPtr(14),
		Color:           "blue",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[domain.Annotation](t, rec)
	if created.ID == 0 || created.CommentText != "nice" || created.Color != "blue" {
		t.Fatalf("unexpected annotation %+v", created)
	}

	rec = e.do(t, http.MethodGet, "/api/comments?articleSlug=hello", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	list := decodeBody[[]domain.Annotation](t, rec)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = e.do(t, http.MethodDelete, "/api/comments/"+itoa(created.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = e.do(t, http.MethodDelete, "/api/comments/"+itoa(created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestCreateCommentRejectsInvalidPayloads(t *testing.T) {
	e := newTestEnv(t, nil)

	cases := []struct {
		name string
		body any
	}{
		{"missing comment", domain.NewAnnotation{ArticleSlug: "hello"}},
		{"reversed offsets", domain.NewAnnotation{ArticleSlug: "hello", CommentText: "c", StartOffset: domain.IntPtr(5), EndOffset: domain.IntPtr(2)}},
		{"unknown color", domain.NewAnnotation{ArticleSlug: "hello", CommentText: "c", Color: "mauve"}},
		{"unknown field", map[string]any{"articleSlug": "hello", "commentText": "c", "extra": true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/comments", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}

	if rec := e.do(t, http.MethodGet, "/api/comments", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("list without slug: expected 400, got %d", rec.Code)
	}
}

func TestShareFlow(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/share", domain.NewShare{Text: "brown fox", ArticleSlug: "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create share: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeBody[domain.ShareCreated](t, rec)
	if created.URL != "https://blog.example.com/s/"+created.ID {
		t.Fatalf("unexpected permalink %q", created.URL)
	}

	rec = e.do(t, http.MethodGet, "/api/share/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get share: expected 200, got %d", rec.Code)
	}
	snip := decodeBody[map[string]string](t, rec)
	if snip["text"] != "brown fox" || snip["articleTitle"] != "Article" {
		t.Fatalf("unexpected share %v", snip)
	}

	rec = e.do(t, http.MethodGet, "/s/"+created.ID, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("redirect: expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/reading/hello?highlight="+created.ID {
		t.Fatalf("unexpected redirect %q", loc)
	}

	rec = e.do(t, http.MethodGet, "/s/unknown", nil)
	if loc := rec.Header().Get("Location"); rec.Code != http.StatusFound || loc != "/reading" {
		t.Fatalf("unknown share: got %d to %q", rec.Code, loc)
	}

	rec = e.do(t, http.MethodGet, "/api/articles/hello/locate?highlight="+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("locate: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	loc := decodeBody[map[string]any](t, rec)
	if loc["start"] != float64(15) || loc["end"] != float64(24) || loc["anchor"] != "shared-highlight" {
		t.Fatalf("unexpected location %v", loc)
	}
}

func TestAnnotatedRenderIsCachedAndInvalidated(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(t, http.MethodPost, "/api/comments", domain.NewAnnotation{
		ArticleSlug: "hello",
		CommentText: "fast",
		StartOffset: domain.IntPtr(9),
		EndOffset:   domain.IntPtr(14),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/articles/hello/annotated", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("X-Render-Cache") != "MISS" {
		t.Fatalf("first render: got %d cache=%q", rec.Code, rec.Header().Get("X-Render-Cache"))
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-annotation-id="1"`) || !strings.Contains(body, `annotation-marker`) {
		t.Fatalf("render misses highlight or marker: %s", body)
	}

	rec = e.do(t, http.MethodGet, "/api/articles/hello/annotated", nil)
	if rec.Header().Get("X-Render-Cache") != "HIT" || rec.Body.String() != body {
		t.Fatalf("second render should hit the cache, got %q", rec.Header().Get("X-Render-Cache"))
	}

	e.do(t, http.MethodPost, "/api/comments", domain.NewAnnotation{ArticleSlug: "hello", CommentText: "more"})
	rec = e.do(t, http.MethodGet, "/api/articles/hello/annotated", nil)
	if rec.Header().Get("X-Render-Cache") != "MISS" {
		t.Fatal("new annotation should invalidate cached renders")
	}

	if rec := e.do(t, http.MethodGet, "/api/articles/missing/annotated", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown article: expected 404, got %d", rec.Code)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)
	for _, c := range []string{"one", "two"} {
		e.do(t, http.MethodPost, "/api/comments", domain.NewAnnotation{
			ArticleSlug: "hello", CommentText: c, StartOffset: domain.IntPtr(9), EndOffset: domain.IntPtr(14),
		})
	}

	rec := e.do(t, http.MethodPost, "/api/articles/hello/layout", map[string]any{
		"highlights": []map[string]any{
			{"annotationId": 1, "top": 100},
			{"annotationId": 2, "top": 150},
			{"annotationId": 99, "top": 10},
		},
		"expanded": []string{"g-1-2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("layout: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	groups := decodeBody[[]map[string]any](t, rec)
	if len(groups) != 1 {
		t.Fatalf("expected one cluster, got %d", len(groups))
	}
	if html, _ := groups[0]["html"].(string); strings.Count(html, `class="comment"`) != 2 {
		t.Fatalf("expanded cluster should list both comments: %s", html)
	}
}

func TestHealthAndReload(t *testing.T) {
	e := newTestEnv(t, nil)

	if rec := e.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: got %d", rec.Code)
	}

	rec := e.do(t, http.MethodGet, "/infra", nil)
	infra := decodeBody[map[string]any](t, rec)
	if infra["mode"] != "operational" {
		t.Fatalf("unexpected infra %v", infra)
	}

	if rec := e.do(t, http.MethodPost, "/reload", nil); rec.Code != http.StatusAccepted {
		t.Fatalf("reload: expected 202, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodPost, "/reload", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("pending reload: expected 429, got %d", rec.Code)
	}
	<-e.trigger
}

func TestAdminRoutesRestricted(t *testing.T) {
	e := newTestEnv(t, func(d *deps.Deps) {
		d.AllowedCIDRS = []string{"10.0.0.0/8"}
	})

	// httptest requests come from 192.0.2.1
	if rec := e.do(t, http.MethodPost, "/reload", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("reload from outside: expected 403, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodDelete, "/api/comments/1", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("delete from outside: expected 403, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz should stay public, got %d", rec.Code)
	}
}

func TestWriteRoutesRateLimited(t *testing.T) {
	e := newTestEnv(t, func(d *deps.Deps) {
		d.RateBurst = 1
		d.RatePerMinute = 1
	})

	in := domain.NewShare{Text: "fox", ArticleSlug: "hello"}
	if rec := e.do(t, http.MethodPost, "/api/share", in); rec.Code != http.StatusOK {
		t.Fatalf("first share: got %d", rec.Code)
	}
	rec := e.do(t, http.MethodPost, "/api/share", in)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second share: expected 429 with Retry-After, got %d", rec.Code)
	}
	if rec := e.do(t, http.MethodGet, "/api/comments?articleSlug=hello", nil); rec.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t, func(d *deps.Deps) {
		d.CORSOrigins = []string{"https://blog.example.com"}
	})

	r := httptest.NewRequest(http.MethodOptions, "/api/comments", nil)
	r.Header.Set("Origin", "https://blog.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://blog.example.com" {
		t.Fatalf("allow origin = %q", got)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
