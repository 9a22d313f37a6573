package models

import "time"

// CacheStrategy selects when sound media is loaded.
type CacheStrategy string

const (
	// StrategyPreload loads every preload-flagged definition during Initialize.
	StrategyPreload CacheStrategy = "preload"
	// StrategyLazy defers loading until the first play.
	StrategyLazy CacheStrategy = "lazy"
)

// ManagerConfig configures the sound manager.
type ManagerConfig struct {
	GlobalVolume   float64
	GlobalMuted    bool
	MaxConcurrent  int // ceiling on simultaneously playing sounds
	DefaultFadeIn  time.Duration
	DefaultFadeOut time.Duration
	CacheStrategy  CacheStrategy
	CacheSize      int // byte budget for the sound cache
	BasePath       string
	Debug          bool
}

// PreloaderConfig configures the background preloader.
type PreloaderConfig struct {
	Concurrency  int
	Timeout      time.Duration
	RetryOnError bool
	MaxRetries   int
	RetryDelay   time.Duration
	// DispatchRate caps load dispatches per second so a cold start cannot
	// stampede the media backend. <= 0 disables pacing.
	DispatchRate float64
	Debug        bool
}

// DefaultManagerConfig returns the manager defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		GlobalVolume:   1.0,
		MaxConcurrent:  8,
		DefaultFadeIn:  0,
		DefaultFadeOut: 0,
		CacheStrategy:  StrategyLazy,
		CacheSize:      64 << 20, // 64 MiB
	}
}

// DefaultPreloaderConfig returns the preloader defaults.
func DefaultPreloaderConfig() PreloaderConfig {
	return PreloaderConfig{
		Concurrency:  3,
		Timeout:      10 * time.Second,
		RetryOnError: true,
		MaxRetries:   2,
		RetryDelay:   time.Second,
	}
}

// SoundSettings is the persisted per-sound volume state.
type SoundSettings struct {
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

// GroupSettings is the persisted per-group volume state.
type GroupSettings struct {
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

// Settings is the user-adjustable volume state persisted across restarts.
// Sound definitions themselves live in the library file, not here.
type Settings struct {
	GlobalVolume float64                  `json:"global_volume"`
	GlobalMuted  bool                     `json:"global_muted"`
	Sounds       map[string]SoundSettings `json:"sounds,omitempty"`
	Groups       map[string]GroupSettings `json:"groups,omitempty"`
}

// DefaultSettings returns the settings used when no file exists yet.
func DefaultSettings() Settings {
	return Settings{
		GlobalVolume: 1.0,
		Sounds:       make(map[string]SoundSettings),
		Groups:       make(map[string]GroupSettings),
	}
}
