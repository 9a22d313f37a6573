package api

import (
	"encoding/json"
	"net/http"

	"github.com/sonora-audio/sonora-go/internal/models"
)

// preload handles POST /api/preload. It queues the requested ids (or every
// preload-flagged definition) and blocks until the batch completes.
func (h *Handlers) preload(w http.ResponseWriter, r *http.Request) {
	var req models.PreloadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
			return
		}
	}
	progress, appErr := h.mgr.PreloadAll(r.Context(), req.IDs)
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// warmCache handles POST /api/cache/warm, loading every not-yet-loaded
// sound with bounded parallelism.
func (h *Handlers) warmCache(w http.ResponseWriter, r *http.Request) {
	loaded := h.mgr.WarmCache(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"loaded": loaded})
}
