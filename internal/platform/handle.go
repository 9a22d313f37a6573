// Package platform abstracts the media playback primitive the sound system
// orchestrates. It defines the Handle interface consumed by the manager and
// two implementations: a file-backed handle and a scriptable mock.
package platform

import (
	"context"
	"time"
)

// SignalKind identifies a playback lifecycle signal.
type SignalKind string

const (
	SignalReady    SignalKind = "ready"
	SignalPlaying  SignalKind = "playing"
	SignalPaused   SignalKind = "paused"
	SignalEnded    SignalKind = "ended"
	SignalError    SignalKind = "error"
	SignalProgress SignalKind = "progress"
)

// Signal is one event emitted by a playback handle.
type Signal struct {
	Kind     SignalKind
	Err      error   // set for SignalError
	Progress float64 // set for SignalProgress, playback fraction [0,1]
}

// Handle is one platform playback primitive, bound to a single sound
// definition for its lifetime. Implementations must be safe for concurrent
// use: the manager, the fade driver, and the preloader all touch handles.
type Handle interface {
	// SetSource points the handle at a media locator. Must be called before
	// Load.
	SetSource(locator string)

	// Load fetches the backing media, suspending the caller until the handle
	// is ready or fails. It returns the raw media bytes so callers can cache
	// them. Loading an already-loaded handle is a cheap no-op.
	Load(ctx context.Context) ([]byte, error)

	// LoadFrom binds already-fetched media data to the handle, marking it
	// ready without touching the backing store.
	LoadFrom(data []byte) error

	// Play starts or resumes playback from the current position.
	Play() error

	// Pause halts playback, keeping the current position.
	Pause() error

	// Seek moves the playback position.
	Seek(pos time.Duration) error

	Position() time.Duration
	Duration() time.Duration

	SetVolume(v float64)
	Volume() float64
	SetLoop(loop bool)
	Loop() bool
	SetRate(rate float64)
	Rate() float64

	// Signals returns the handle's lifecycle signal stream. The channel is
	// closed by Close.
	Signals() <-chan Signal

	// Close releases the handle. No methods may be called afterwards.
	Close() error
}

// Factory creates a fresh, unbound handle. The manager calls it once per
// registered sound definition.
type Factory func() Handle
