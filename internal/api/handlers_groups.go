package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sonora-audio/sonora-go/internal/models"
)

func (h *Handlers) getGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": h.mgr.Groups()})
}

func (h *Handlers) getGroup(w http.ResponseWriter, r *http.Request) {
	g, appErr := h.mgr.Group(chi.URLParam(r, "gid"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) createGroup(w http.ResponseWriter, r *http.Request) {
	var g models.SoundGroup
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if appErr := h.mgr.RegisterGroup(g); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) setGroupLevel(w http.ResponseWriter, r *http.Request) {
	gid := chi.URLParam(r, "gid")
	var upd models.LevelUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if upd.Volume != nil {
		if appErr := h.mgr.SetGroupVolume(gid, *upd.Volume); appErr != nil {
			writeError(w, appErr)
			return
		}
	}
	if upd.Muted != nil {
		if appErr := h.mgr.SetGroupMuted(gid, *upd.Muted); appErr != nil {
			writeError(w, appErr)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}
