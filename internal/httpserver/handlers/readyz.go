package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready    bool `json:"ready"`
	Articles int  `json:"articles"`
	Store    bool `json:"store"`
}

// Readyz is ready once articles are indexed and the store answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := readyzResponse{
			Articles: d.MemoryIndex.Count(),
			Store:    d.Store.Ping(ctx) == nil,
		}
		resp.Ready = resp.Articles > 0 && resp.Store

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
