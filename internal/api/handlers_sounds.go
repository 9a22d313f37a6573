package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sonora-audio/sonora-go/internal/manager"
	"github.com/sonora-audio/sonora-go/internal/models"
)

func (h *Handlers) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Stats())
}

func (h *Handlers) getSounds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"sounds": h.mgr.Sounds()})
}

func (h *Handlers) getSound(w http.ResponseWriter, r *http.Request) {
	s, appErr := h.mgr.Sound(chi.URLParam(r, "id"))
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) playSound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.PlayRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
			return
		}
	}

	opts := &manager.PlayOptions{
		Volume: req.Volume,
		Rate:   req.Rate,
		Loop:   req.Loop,
		FadeIn: millis(req.FadeInMS),
	}
	if req.OffsetMS != nil {
		opts.Offset = time.Duration(*req.OffsetMS) * time.Millisecond
	}
	if req.DelayMS != nil {
		opts.Delay = time.Duration(*req.DelayMS) * time.Millisecond
	}

	if appErr := h.mgr.Play(r.Context(), id, opts); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) stopSound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.StopRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
			return
		}
	}
	opts := &manager.StopOptions{FadeOut: millis(req.FadeOutMS)}
	if appErr := h.mgr.Stop(r.Context(), id, opts); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) stopAll(w http.ResponseWriter, r *http.Request) {
	var req models.StopRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
			return
		}
	}
	h.mgr.StopAll(r.Context(), &manager.StopOptions{FadeOut: millis(req.FadeOutMS)})
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) pauseSound(w http.ResponseWriter, r *http.Request) {
	if appErr := h.mgr.Pause(chi.URLParam(r, "id")); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) resumeSound(w http.ResponseWriter, r *http.Request) {
	if appErr := h.mgr.Resume(chi.URLParam(r, "id")); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) fadeInSound(w http.ResponseWriter, r *http.Request) {
	h.fadeSound(w, r, h.mgr.FadeIn)
}

func (h *Handlers) fadeOutSound(w http.ResponseWriter, r *http.Request) {
	h.fadeSound(w, r, h.mgr.FadeOut)
}

func (h *Handlers) fadeSound(w http.ResponseWriter, r *http.Request, fade func(string, time.Duration) *models.AppError) {
	var req models.FadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if req.DurationMS < 0 {
		writeError(w, models.ErrBadRequest("duration_ms must not be negative"))
		return
	}
	d := time.Duration(req.DurationMS) * time.Millisecond
	if appErr := fade(chi.URLParam(r, "id"), d); appErr != nil {
		writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) setSoundLevel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var upd models.LevelUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if upd.Volume != nil {
		if appErr := h.mgr.SetSoundVolume(id, *upd.Volume); appErr != nil {
			writeError(w, appErr)
			return
		}
	}
	if upd.Muted != nil {
		if appErr := h.mgr.SetSoundMuted(id, *upd.Muted); appErr != nil {
			writeError(w, appErr)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}

func (h *Handlers) setGlobalLevel(w http.ResponseWriter, r *http.Request) {
	var upd models.LevelUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON: "+err.Error()))
		return
	}
	if upd.Volume != nil {
		h.mgr.SetGlobalVolume(*upd.Volume)
	}
	if upd.Muted != nil {
		h.mgr.SetGlobalMuted(*upd.Muted)
	}
	writeJSON(w, http.StatusOK, h.mgr.State())
}
