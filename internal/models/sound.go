// Package models defines the data structures for the sonora sound system.
// JSON field names match the original TypeScript implementation for wire
// compatibility with existing front-ends.
package models

import "time"

// PlayMode selects what happens when playback reaches the end of the media.
type PlayMode string

const (
	// PlayModeOnce stops the sound at its natural end.
	PlayModeOnce PlayMode = "once"
	// PlayModeLoop restarts the sound from the beginning at its natural end.
	PlayModeLoop PlayMode = "loop"
)

// PlayState is the lifecycle state of a sound instance.
type PlayState string

const (
	StateUnloaded PlayState = "unloaded"
	StateLoading  PlayState = "loading"
	StateLoaded   PlayState = "loaded"
	StatePlaying  PlayState = "playing"
	StatePaused   PlayState = "paused"
	StateStopped  PlayState = "stopped"
	StateError    PlayState = "error"
)

// SoundConfig is the immutable definition of a playable resource.
// Created at registration time from static configuration; never mutated.
type SoundConfig struct {
	ID        string   `json:"id"`
	Path      string   `json:"path"`
	Volume    float64  `json:"volume"`             // base volume [0,1]
	Mode      PlayMode `json:"mode,omitempty"`     // default "once"
	Priority  int      `json:"priority,omitempty"` // higher loads first
	Preload   bool     `json:"preload,omitempty"`
	FadeInMS  int      `json:"fade_in_ms,omitempty"`
	FadeOutMS int      `json:"fade_out_ms,omitempty"`
	Rate      float64  `json:"rate,omitempty"` // playback-rate multiplier, default 1.0
}

// FadeIn returns the configured fade-in duration.
func (c SoundConfig) FadeIn() time.Duration { return time.Duration(c.FadeInMS) * time.Millisecond }

// FadeOut returns the configured fade-out duration.
func (c SoundConfig) FadeOut() time.Duration { return time.Duration(c.FadeOutMS) * time.Millisecond }

// Loops reports whether the definition requests looped playback.
func (c SoundConfig) Loops() bool { return c.Mode == PlayModeLoop }

// PlaybackRate returns the configured rate multiplier, defaulting to 1.0.
func (c SoundConfig) PlaybackRate() float64 {
	if c.Rate <= 0 {
		return 1.0
	}
	return c.Rate
}

// SoundInstance is the mutable runtime view of one registered sound.
// The manager is the sole mutator; everyone else gets copies.
type SoundInstance struct {
	ID           string      `json:"id"`
	Config       SoundConfig `json:"config"`
	State        PlayState   `json:"state"`
	Volume       float64     `json:"volume"` // per-instance volume [0,1]
	Muted        bool        `json:"muted"`
	Progress     float64     `json:"progress"` // playback fraction [0,1]
	CreatedAt    time.Time   `json:"created_at"`
	LastPlayedAt time.Time   `json:"last_played_at,omitzero"`
}

// SoundGroup is a named collection of sounds whose volume and mute state are
// composed into each member's effective volume. Membership is a snapshot
// taken at registration time.
type SoundGroup struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	SoundIDs []string `json:"sounds"`
	Volume   float64  `json:"volume"` // group volume [0,1]
	Muted    bool     `json:"muted"`
}

// State is the complete manager state snapshot returned by GET /api and
// published over the event stream on demand.
type State struct {
	GlobalVolume float64         `json:"global_volume"`
	GlobalMuted  bool            `json:"global_muted"`
	Sounds       []SoundInstance `json:"sounds"`
	Groups       []SoundGroup    `json:"groups"`
	Playing      int             `json:"playing"`
}

// Stats summarizes the manager's resource usage. EstimatedBytes is derived
// from each loaded sound's playback duration at an assumed 44.1 kHz / 16-bit
// stereo sample format — an estimate, not a measurement.
type Stats struct {
	Total          int     `json:"total"`
	Loaded         int     `json:"loaded"`
	Playing        int     `json:"playing"`
	EstimatedBytes uint64  `json:"estimated_bytes"`
	EstimatedHuman string  `json:"estimated_human"`
	CacheUsage     float64 `json:"cache_usage"` // currentSize / maxSize
}

// Clamp01 clamps v to the [0,1] volume range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
