package manager

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/remeh/sizedwaitgroup"

	"github.com/sonora-audio/sonora-go/internal/models"
)

// bytesPerSecond is the uncompressed size assumption used for memory
// estimates: 44.1 kHz, 16-bit, stereo.
const bytesPerSecond = 44100 * 2 * 2

// Sound returns a snapshot of one instance.
func (m *Manager) Sound(id string) (models.SoundInstance, *models.AppError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sounds[id]
	if !ok {
		return models.SoundInstance{}, models.ErrSoundNotFound(id)
	}
	return m.instanceLocked(s), nil
}

// Sounds returns snapshots of every instance in registration order.
func (m *Manager) Sounds() []models.SoundInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SoundInstance, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.instanceLocked(m.sounds[id]))
	}
	return out
}

func (m *Manager) instanceLocked(s *sound) models.SoundInstance {
	return models.SoundInstance{
		ID:           s.cfg.ID,
		Config:       s.cfg,
		State:        s.state,
		Volume:       s.volume,
		Muted:        s.muted,
		Progress:     s.progress,
		CreatedAt:    s.created,
		LastPlayedAt: s.played,
	}
}

// State returns the complete manager state snapshot.
func (m *Manager) State() models.State {
	m.mu.Lock()
	st := models.State{
		GlobalVolume: m.globalVolume,
		GlobalMuted:  m.globalMuted,
		Playing:      len(m.playing),
		Sounds:       make([]models.SoundInstance, 0, len(m.order)),
	}
	for _, id := range m.order {
		st.Sounds = append(st.Sounds, m.instanceLocked(m.sounds[id]))
	}
	m.mu.Unlock()
	st.Groups = m.Groups()
	return st
}

// Stats summarizes registered, loaded, and playing counts plus an
// uncompressed-audio memory estimate derived from playback durations.
func (m *Manager) Stats() models.Stats {
	m.mu.Lock()
	st := models.Stats{Total: len(m.sounds), Playing: len(m.playing)}
	var estimated float64
	for _, s := range m.sounds {
		switch s.state {
		case models.StateLoaded, models.StatePlaying, models.StatePaused, models.StateStopped:
			st.Loaded++
			estimated += s.handle.Duration().Seconds() * bytesPerSecond
		}
	}
	m.mu.Unlock()

	st.EstimatedBytes = uint64(estimated)
	st.EstimatedHuman = humanize.IBytes(st.EstimatedBytes)
	st.CacheUsage = m.cache.UsageRate()
	return st
}

// WarmCache loads every not-yet-loaded sound with bounded parallelism and
// returns how many loads succeeded.
func (m *Manager) WarmCache(ctx context.Context) int {
	m.mu.Lock()
	var pending []*sound
	for _, id := range m.order {
		s := m.sounds[id]
		if s.state == models.StateUnloaded || s.state == models.StateError {
			pending = append(pending, s)
		}
	}
	m.mu.Unlock()
	if len(pending) == 0 {
		return 0
	}

	start := time.Now()
	var succeeded atomic.Int64
	swg := sizedwaitgroup.New(runtime.NumCPU())
	for _, s := range pending {
		if err := swg.AddWithContext(ctx); err != nil {
			break
		}
		go func(s *sound) {
			defer swg.Done()
			if err := m.load(ctx, s); err != nil {
				slog.Warn("manager: warm load failed", "id", s.cfg.ID, "err", err)
				return
			}
			succeeded.Add(1)
		}(s)
	}
	swg.Wait()

	loaded := int(succeeded.Load())
	slog.Info("manager: cache warmed", "loaded", loaded, "of", len(pending),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return loaded
}
