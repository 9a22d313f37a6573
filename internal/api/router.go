package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(mgr Manager, bus EventBus) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{mgr: mgr, events: bus}

	// System state
	r.Get("/api", h.getState)
	r.Get("/api/", h.getState)
	r.Get("/api/stats", h.getStats)

	// Sounds
	r.Get("/api/sounds", h.getSounds)
	r.Get("/api/sounds/{id}", h.getSound)
	r.Post("/api/sounds/{id}/play", h.playSound)
	r.Post("/api/sounds/{id}/stop", h.stopSound)
	r.Post("/api/sounds/{id}/pause", h.pauseSound)
	r.Post("/api/sounds/{id}/resume", h.resumeSound)
	r.Post("/api/sounds/{id}/fade-in", h.fadeInSound)
	r.Post("/api/sounds/{id}/fade-out", h.fadeOutSound)
	r.Patch("/api/sounds/{id}", h.setSoundLevel)
	r.Post("/api/stop", h.stopAll)

	// Volume
	r.Patch("/api/volume", h.setGlobalLevel)

	// Groups
	r.Get("/api/groups", h.getGroups)
	r.Get("/api/groups/{gid}", h.getGroup)
	r.Post("/api/group", h.createGroup)
	r.Patch("/api/groups/{gid}", h.setGroupLevel)

	// Cache
	r.Post("/api/preload", h.preload)
	r.Post("/api/cache/warm", h.warmCache)

	// SSE
	r.Get("/api/subscribe", h.sseEvents)

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
