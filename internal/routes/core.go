package routes

import (
	"net/http"

	"github.com/clipdock/clipdock/internal/config"
)

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, 200, map[string]interface{}{
		"status":  "ok",
		"version": config.Version,
		"slots":   h.Worker.Gate.Available(),
	})
}
