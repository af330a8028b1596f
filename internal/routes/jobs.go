package routes

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/clipdock/clipdock/internal/runjob"
	"github.com/clipdock/clipdock/internal/util"
)

// handleTriggerJob hands the download off to the external job
// orchestrator. Deliberately not behind the admission gate: triggering
// is cheap, the actual download runs elsewhere.
func (h *Handler) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	if h.Trigger == nil {
		respondJSON(w, 503, map[string]string{"error": "job trigger is not configured"})
		return
	}

	var p runjob.Params
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSON(w, 400, map[string]string{"error": "invalid JSON body"})
		return
	}

	check := util.ValidateURL(p.URL)
	if !check.Valid {
		respondJSON(w, 400, map[string]string{"error": check.Error})
		return
	}

	execution, err := h.Trigger.Trigger(r.Context(), p)
	if err != nil {
		log.Printf("[Jobs] Trigger failed: %v", err)
		respondJSON(w, 502, map[string]string{"error": util.Truncate(err.Error(), 500)})
		return
	}

	respondJSON(w, 202, map[string]string{
		"status":    "dispatched",
		"execution": execution,
	})
}
