package mw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/logger"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		Now:               func() time.Time { return now },
	})(noContent)

	req := func(addr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/comments", nil)
		r.RemoteAddr = addr
		return serve(h, r)
	}

	for i := 0; i < 2; i++ {
		if rec := req("1.2.3.4:1000"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: got %d", i, rec.Code)
		}
	}

	rec := req("1.2.3.4:1001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
		t.Fatalf("expected JSON error body, got %q (%v)", rec.Body.String(), err)
	}

	if rec := req("5.6.7.8:1000"); rec.Code != http.StatusNoContent {
		t.Fatalf("other client should not be limited, got %d", rec.Code)
	}

	now = now.Add(time.Second)
	if rec := req("1.2.3.4:1000"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected refill after a second, got %d", rec.Code)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, true, logger.NewNop())(noContent)

	r := httptest.NewRequest(http.MethodGet, "/infra", nil)
	r.RemoteAddr = "10.1.2.3:5000"
	if rec := serve(h, r); rec.Code != http.StatusNoContent {
		t.Fatalf("inside range: got %d", rec.Code)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.1")
	if rec := serve(h, r); rec.Code != http.StatusForbidden {
		t.Fatalf("forwarded outsider: got %d", rec.Code)
	}

	open := AllowOnlyCIDRS(nil, false, logger.NewNop())(noContent)
	if rec := serve(open, r); rec.Code != http.StatusNoContent {
		t.Fatalf("empty list should pass through, got %d", rec.Code)
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"Admin.example.com", "*.internal.lan"}, logger.NewNop())(noContent)

	cases := map[string]int{
		"admin.example.com:8080": http.StatusNoContent,
		"api.internal.lan":       http.StatusNoContent,
		"internal.lan":           http.StatusForbidden,
		"evil.com":               http.StatusForbidden,
	}
	for host, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/reload", nil)
		r.Host = host
		if rec := serve(h, r); rec.Code != want {
			t.Errorf("host %q: got %d, want %d", host, rec.Code, want)
		}
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://blog.example.com"})(noContent)

	r := httptest.NewRequest(http.MethodOptions, "/api/comments", nil)
	r.Header.Set("Origin", "https://blog.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, r)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://blog.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/comments", nil)
	r.Header.Set("Origin", "https://other.example.com")
	rec = serve(h, r)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
