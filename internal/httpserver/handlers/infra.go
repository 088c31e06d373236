package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	ArticlesLoaded *int   `json:"articles_loaded,omitempty"`
	LastReload     string `json:"last_reload,omitempty"`
	Backend        string `json:"backend,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Error          string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
	Stats      *store.Stats               `json:"stats,omitempty"`
}

// Infra reports the state of the content index and the store, with record
// counts when the store is reachable.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		articles := d.MemoryIndex.Count()
		lastReload := d.MemoryIndex.GetLastReload()
		lastReloadStr := "never"
		if !lastReload.IsZero() {
			lastReloadStr = lastReload.Format("2006-01-02 15:04:05")
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		storeStatus := componentStatus{OK: true, Backend: d.StoreBackend}
		var stats *store.Stats
		if err := d.Store.Ping(ctx); err != nil {
			storeStatus.OK = false
			storeStatus.Impact = "annotations-unavailable"
			storeStatus.Error = "unreachable"
		} else if st, err := store.Collect(ctx, d.Store); err == nil {
			stats = &st
		}

		components := map[string]componentStatus{
			"content": {
				OK:             articles > 0,
				ArticlesLoaded: &articles,
				LastReload:     lastReloadStr,
			},
			"store": storeStatus,
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       mode(components),
			Components: components,
			Stats:      stats,
		})
	}
}

func mode(components map[string]componentStatus) string {
	if !components["content"].OK {
		return "critical" // nothing to annotate
	}
	if !components["store"].OK {
		return "degraded" // articles readable, annotations not
	}
	return "operational"
}
