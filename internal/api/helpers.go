// Package api implements the HTTP REST API for the sonora sound daemon.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sonora-audio/sonora-go/internal/events"
	"github.com/sonora-audio/sonora-go/internal/manager"
	"github.com/sonora-audio/sonora-go/internal/models"
	"github.com/sonora-audio/sonora-go/internal/preload"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	mgr    Manager
	events EventBus
}

// Manager is the interface the handlers use to drive the sound system.
type Manager interface {
	State() models.State
	Stats() models.Stats
	Sounds() []models.SoundInstance
	Sound(id string) (models.SoundInstance, *models.AppError)
	Play(ctx context.Context, id string, opts *manager.PlayOptions) *models.AppError
	Stop(ctx context.Context, id string, opts *manager.StopOptions) *models.AppError
	StopAll(ctx context.Context, opts *manager.StopOptions)
	Pause(id string) *models.AppError
	Resume(id string) *models.AppError
	FadeIn(id string, d time.Duration) *models.AppError
	FadeOut(id string, d time.Duration) *models.AppError
	SetGlobalVolume(v float64)
	SetGlobalMuted(muted bool)
	SetSoundVolume(id string, v float64) *models.AppError
	SetSoundMuted(id string, muted bool) *models.AppError
	SetGroupVolume(id string, v float64) *models.AppError
	SetGroupMuted(id string, muted bool) *models.AppError
	Groups() []models.SoundGroup
	Group(id string) (models.SoundGroup, *models.AppError)
	RegisterGroup(g models.SoundGroup) *models.AppError
	PreloadAll(ctx context.Context, ids []string) (preload.Progress, *models.AppError)
	WarmCache(ctx context.Context) int
}

// EventBus is the interface for subscribing to sound lifecycle events.
type EventBus interface {
	Subscribe(id string) <-chan events.Event
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// millis converts an optional millisecond count to a duration pointer.
func millis(ms *int) *time.Duration {
	if ms == nil {
		return nil
	}
	d := time.Duration(*ms) * time.Millisecond
	return &d
}
