package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sonora-audio/sonora-go/internal/events"
	"github.com/sonora-audio/sonora-go/internal/models"
	"github.com/sonora-audio/sonora-go/internal/platform"
)

// PlayOptions carries per-call playback overrides. Every field is optional;
// nil means "use the definition's value".
type PlayOptions struct {
	Volume  *float64
	Rate    *float64
	Loop    *bool
	Offset  time.Duration
	Delay   time.Duration
	FadeIn  *time.Duration
	OnEnd   func()
	OnError func(*models.AppError)
}

// StopOptions carries per-call stop overrides.
type StopOptions struct {
	FadeOut *time.Duration
}

// Play starts playback of a registered sound, loading it on demand. When the
// concurrent-playback ceiling is reached the request is dropped silently.
// With OnError set, failures are delivered through the callback instead of
// the return value.
func (m *Manager) Play(ctx context.Context, id string, opts *PlayOptions) *models.AppError {
	if opts == nil {
		opts = &PlayOptions{}
	}
	deliver := func(err *models.AppError) *models.AppError {
		if err != nil && opts.OnError != nil {
			opts.OnError(err)
			return nil
		}
		return err
	}

	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return deliver(models.ErrInternal("manager has been destroyed"))
	}
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return deliver(models.ErrSoundNotFound(id))
	}
	if !m.reserveLocked(id) {
		m.mu.Unlock()
		return nil
	}
	needsLoad := s.state == models.StateUnloaded || s.state == models.StateLoading || s.state == models.StateError
	m.mu.Unlock()

	if needsLoad {
		if err := m.load(ctx, s); err != nil {
			m.mu.Lock()
			delete(m.reserved, id)
			m.mu.Unlock()
			return deliver(err)
		}
	}

	if opts.Delay > 0 {
		time.AfterFunc(opts.Delay, func() {
			if err := m.start(s, opts); err != nil {
				if opts.OnError != nil {
					opts.OnError(err)
					return
				}
				slog.Error("manager: delayed play failed", "id", id, "err", err)
			}
		})
		return nil
	}
	return deliver(m.start(s, opts))
}

// reserveLocked applies the concurrent-playback ceiling and, on admission,
// holds a slot for a play that has not reached the handle yet. The slot is
// committed by commitPlayingLocked or returned by releasing m.reserved.
// Restarting an already-playing sound reuses its slot.
func (m *Manager) reserveLocked(id string) bool {
	if _, already := m.playing[id]; already {
		return true
	}
	if _, held := m.reserved[id]; held {
		return true
	}
	if m.cfg.MaxConcurrent > 0 && len(m.playing)+len(m.reserved) >= m.cfg.MaxConcurrent {
		slog.Debug("manager: play dropped, concurrency ceiling reached",
			"id", id, "ceiling", m.cfg.MaxConcurrent)
		return false
	}
	m.reserved[id] = struct{}{}
	return true
}

// commitPlayingLocked converts a held reservation into a playing slot.
func (m *Manager) commitPlayingLocked(id string) {
	delete(m.reserved, id)
	m.playing[id] = struct{}{}
}

// start begins playback on a loaded handle, applying overrides and the
// fade-in ramp.
func (m *Manager) start(s *sound, opts *PlayOptions) *models.AppError {
	id := s.cfg.ID

	m.mu.Lock()
	if m.destroyed {
		delete(m.reserved, id)
		m.mu.Unlock()
		return models.ErrInternal("manager has been destroyed")
	}
	if opts.Volume != nil {
		s.volume = models.Clamp01(*opts.Volume)
	}
	rate := s.cfg.PlaybackRate()
	if opts.Rate != nil && *opts.Rate > 0 {
		rate = *opts.Rate
	}
	loop := s.cfg.Loops()
	if opts.Loop != nil {
		loop = *opts.Loop
	}
	fadeIn := m.cfg.DefaultFadeIn
	if s.cfg.FadeInMS > 0 {
		fadeIn = s.cfg.FadeIn()
	}
	if opts.FadeIn != nil {
		fadeIn = *opts.FadeIn
	}
	eff := m.effectiveVolumeLocked(s)
	h := s.handle
	m.mu.Unlock()

	h.SetRate(rate)
	h.SetLoop(loop)
	if opts.Offset > 0 {
		if err := h.Seek(opts.Offset); err != nil {
			slog.Warn("manager: seek failed", "id", id, "err", err)
		}
	}
	if fadeIn > 0 {
		h.SetVolume(0)
	} else {
		h.SetVolume(eff)
	}
	if err := h.Play(); err != nil {
		m.mu.Lock()
		s.state = models.StateError
		delete(m.playing, id)
		delete(m.reserved, id)
		m.mu.Unlock()
		evt := events.New(events.SoundError, id)
		evt.Error = err.Error()
		m.bus.Publish(evt)
		return models.ErrPlayFailed(id, err.Error())
	}

	m.mu.Lock()
	s.state = models.StatePlaying
	s.played = time.Now()
	s.onEnd = opts.OnEnd
	s.onError = opts.OnError
	m.commitPlayingLocked(id)
	m.mu.Unlock()

	m.bus.Publish(events.New(events.SoundPlay, id))
	if fadeIn > 0 {
		m.fades.Begin(id, 0, eff, fadeIn, h.SetVolume, nil)
	}
	return nil
}

// Stop halts playback, fading out first when a fade duration applies. It
// blocks until the fade completes; cancelling ctx cuts the fade short and
// stops the sound immediately. A fade replaced by a newer operation leaves
// the instance to that operation.
func (m *Manager) Stop(ctx context.Context, id string, opts *StopOptions) *models.AppError {
	if opts == nil {
		opts = &StopOptions{}
	}
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	fadeOut := m.cfg.DefaultFadeOut
	if s.cfg.FadeOutMS > 0 {
		fadeOut = s.cfg.FadeOut()
	}
	if opts.FadeOut != nil {
		fadeOut = *opts.FadeOut
	}
	playing := s.state == models.StatePlaying
	h := s.handle
	m.mu.Unlock()

	if playing && fadeOut > 0 {
		done := make(chan bool, 1)
		m.fades.Begin(id, h.Volume(), 0, fadeOut, h.SetVolume, func(completed bool) {
			done <- completed
		})
		select {
		case completed := <-done:
			if completed {
				m.halt(s)
			}
		case <-ctx.Done():
			// Skip the remainder of the ramp but still stop the sound.
			m.fades.Cancel(id)
			m.halt(s)
		}
		return nil
	}

	m.fades.Cancel(id)
	m.halt(s)
	return nil
}

// halt performs the immediate portion of a stop: pause, rewind, restore
// volume for the next play, and emit the stop event.
func (m *Manager) halt(s *sound) {
	h := s.handle
	_ = h.Pause()
	_ = h.Seek(0)

	m.mu.Lock()
	s.state = models.StateStopped
	s.progress = 0
	s.onEnd = nil
	s.onError = nil
	delete(m.playing, s.cfg.ID)
	eff := m.effectiveVolumeLocked(s)
	m.mu.Unlock()

	h.SetVolume(eff)
	m.bus.Publish(events.New(events.SoundStop, s.cfg.ID))
}

// StopAll stops every currently playing sound concurrently and waits for
// all fade-outs to finish.
func (m *Manager) StopAll(ctx context.Context, opts *StopOptions) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.playing))
	for id := range m.playing {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := m.Stop(ctx, id, opts); err != nil {
				slog.Warn("manager: stop failed", "id", id, "err", err)
			}
		}(id)
	}
	wg.Wait()
}

// Pause suspends playback, keeping the position. Pausing a sound that is
// not playing is a no-op.
func (m *Manager) Pause(id string) *models.AppError {
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	if s.state != models.StatePlaying {
		m.mu.Unlock()
		return nil
	}
	s.state = models.StatePaused
	delete(m.playing, id)
	h := s.handle
	m.mu.Unlock()

	m.fades.Cancel(id)
	_ = h.Pause()
	m.bus.Publish(events.New(events.SoundPause, id))
	return nil
}

// Resume continues a paused sound from its position. Resuming a sound that
// is not paused is a no-op. The concurrency ceiling applies to resumes too.
func (m *Manager) Resume(id string) *models.AppError {
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	if s.state != models.StatePaused {
		m.mu.Unlock()
		return nil
	}
	if !m.reserveLocked(id) {
		m.mu.Unlock()
		return nil
	}
	eff := m.effectiveVolumeLocked(s)
	h := s.handle
	m.mu.Unlock()

	h.SetVolume(eff)
	if err := h.Play(); err != nil {
		m.mu.Lock()
		s.state = models.StateError
		delete(m.reserved, id)
		m.mu.Unlock()
		evt := events.New(events.SoundError, id)
		evt.Error = err.Error()
		m.bus.Publish(evt)
		return models.ErrPlayFailed(id, err.Error())
	}

	m.mu.Lock()
	s.state = models.StatePlaying
	m.commitPlayingLocked(id)
	m.mu.Unlock()

	m.bus.Publish(events.New(events.SoundPlay, id))
	return nil
}

// FadeIn ramps a sound from its current level up to its effective volume.
func (m *Manager) FadeIn(id string, d time.Duration) *models.AppError {
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	eff := m.effectiveVolumeLocked(s)
	h := s.handle
	m.mu.Unlock()

	m.fades.Begin(id, h.Volume(), eff, d, h.SetVolume, nil)
	return nil
}

// FadeOut ramps a sound from its current level down to silence without
// stopping it.
func (m *Manager) FadeOut(id string, d time.Duration) *models.AppError {
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	h := s.handle
	m.mu.Unlock()

	m.fades.Begin(id, h.Volume(), 0, d, h.SetVolume, nil)
	return nil
}

// watch consumes a handle's signal stream and applies end-of-playback,
// error, and progress updates. It runs until the handle is closed.
func (m *Manager) watch(s *sound) {
	defer m.wg.Done()
	id := s.cfg.ID
	for sig := range s.handle.Signals() {
		switch sig.Kind {
		case platform.SignalEnded:
			m.mu.Lock()
			if s.state != models.StatePlaying {
				m.mu.Unlock()
				continue
			}
			s.state = models.StateStopped
			s.progress = 0
			cb := s.onEnd
			s.onEnd = nil
			s.onError = nil
			delete(m.playing, id)
			m.mu.Unlock()

			m.fades.Cancel(id)
			m.bus.Publish(events.New(events.SoundEnd, id))
			if cb != nil {
				cb()
			}
		case platform.SignalError:
			m.mu.Lock()
			// Load errors are reported on the load path; only runtime
			// failures of an active sound are handled here.
			if s.state != models.StatePlaying && s.state != models.StatePaused {
				m.mu.Unlock()
				continue
			}
			s.state = models.StateError
			cb := s.onError
			s.onEnd = nil
			s.onError = nil
			delete(m.playing, id)
			m.mu.Unlock()

			m.fades.Cancel(id)
			evt := events.New(events.SoundError, id)
			msg := "audio error"
			if sig.Err != nil {
				msg = sig.Err.Error()
				evt.Error = msg
			}
			m.bus.Publish(evt)
			if cb != nil {
				cb(models.ErrAudioError(id, msg))
			}
		case platform.SignalProgress:
			m.mu.Lock()
			s.progress = sig.Progress
			m.mu.Unlock()
		}
	}
}
