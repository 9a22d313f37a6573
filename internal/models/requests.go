package models

// PlayRequest carries per-call playback overrides. Nil fields fall back to
// the sound definition's defaults.
type PlayRequest struct {
	Volume   *float64 `json:"volume,omitempty"`
	Rate     *float64 `json:"rate,omitempty"`
	Loop     *bool    `json:"loop,omitempty"`
	OffsetMS *int     `json:"offset_ms,omitempty"`
	DelayMS  *int     `json:"delay_ms,omitempty"`
	FadeInMS *int     `json:"fade_in_ms,omitempty"`
}

// StopRequest carries per-call stop overrides.
type StopRequest struct {
	FadeOutMS *int `json:"fade_out_ms,omitempty"`
}

// FadeRequest starts a standalone fade.
type FadeRequest struct {
	DurationMS int `json:"duration_ms"`
}

// LevelUpdate updates volume and/or mute at any of the three levels
// (global, group, sound). Nil fields are left unchanged.
type LevelUpdate struct {
	Volume *float64 `json:"volume,omitempty"`
	Muted  *bool    `json:"muted,omitempty"`
}

// PreloadRequest selects which sounds to preload. An empty list means every
// definition registered with preload=true.
type PreloadRequest struct {
	IDs []string `json:"ids,omitempty"`
}
