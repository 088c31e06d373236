package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/annotate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/annotate/internal/logger"
)

type reloadResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Reload triggers a manual reload of the content directory
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.ReloadTrigger <- struct{}{}:
			d.Logger.Info("manual content reload triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, reloadResponse{Triggered: true, Message: "reload triggered"})
		default:
			d.Logger.Warn("content reload already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, reloadResponse{Message: "reload already pending, please wait"})
		}
	}
}
