package manager

import (
	"github.com/sonora-audio/sonora-go/internal/events"
	"github.com/sonora-audio/sonora-go/internal/models"
)

// effectiveVolumeLocked composes instance × group × global volume. Any mute
// along the chain silences the sound outright.
func (m *Manager) effectiveVolumeLocked(s *sound) float64 {
	if m.globalMuted || s.muted {
		return 0
	}
	vol := s.volume * m.globalVolume
	if gid, ok := m.groupOf[s.cfg.ID]; ok {
		g := m.groups[gid]
		if g.Muted {
			return 0
		}
		vol *= g.Volume
	}
	return models.Clamp01(vol)
}

// reapplyLocked pushes effective volumes to handles. With a nil filter every
// sound is refreshed. An in-flight fade overwrites the level again on its
// next tick; the fade keeps its captured target.
func (m *Manager) reapplyLocked(ids []string) {
	apply := func(s *sound) {
		s.handle.SetVolume(m.effectiveVolumeLocked(s))
	}
	if ids == nil {
		for _, s := range m.sounds {
			apply(s)
		}
		return
	}
	for _, id := range ids {
		if s, ok := m.sounds[id]; ok {
			apply(s)
		}
	}
}

// SetGlobalVolume sets the global level and refreshes every sound.
func (m *Manager) SetGlobalVolume(v float64) {
	v = models.Clamp01(v)
	m.mu.Lock()
	m.globalVolume = v
	m.settings.GlobalVolume = v
	m.reapplyLocked(nil)
	m.persistLocked()
	m.mu.Unlock()

	evt := events.New(events.VolumeChanged, "")
	evt.Volume = &v
	m.bus.Publish(evt)
}

// GlobalVolume returns the global level.
func (m *Manager) GlobalVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalVolume
}

// SetGlobalMuted toggles the global mute.
func (m *Manager) SetGlobalMuted(muted bool) {
	m.mu.Lock()
	m.globalMuted = muted
	m.settings.GlobalMuted = muted
	m.reapplyLocked(nil)
	m.persistLocked()
	m.mu.Unlock()

	evt := events.New(events.MuteChanged, "")
	evt.Muted = &muted
	m.bus.Publish(evt)
}

// GlobalMuted reports the global mute state.
func (m *Manager) GlobalMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalMuted
}

// SetSoundVolume sets one instance's own level.
func (m *Manager) SetSoundVolume(id string, v float64) *models.AppError {
	v = models.Clamp01(v)
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	s.volume = v
	m.settings.Sounds[id] = models.SoundSettings{Volume: v, Muted: s.muted}
	m.reapplyLocked([]string{id})
	m.persistLocked()
	m.mu.Unlock()

	evt := events.New(events.VolumeChanged, id)
	evt.Volume = &v
	m.bus.Publish(evt)
	return nil
}

// SetSoundMuted toggles one instance's mute.
func (m *Manager) SetSoundMuted(id string, muted bool) *models.AppError {
	m.mu.Lock()
	s, ok := m.sounds[id]
	if !ok {
		m.mu.Unlock()
		return models.ErrSoundNotFound(id)
	}
	s.muted = muted
	m.settings.Sounds[id] = models.SoundSettings{Volume: s.volume, Muted: muted}
	m.reapplyLocked([]string{id})
	m.persistLocked()
	m.mu.Unlock()

	evt := events.New(events.MuteChanged, id)
	evt.Muted = &muted
	m.bus.Publish(evt)
	return nil
}

// SetGroupVolume sets a group's level and refreshes its members.
func (m *Manager) SetGroupVolume(groupID string, v float64) *models.AppError {
	v = models.Clamp01(v)
	m.mu.Lock()
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return models.ErrGroupNotFound(groupID)
	}
	g.Volume = v
	m.settings.Groups[groupID] = models.GroupSettings{Volume: v, Muted: g.Muted}
	m.reapplyLocked(g.SoundIDs)
	m.persistLocked()
	m.mu.Unlock()

	evt := events.New(events.VolumeChanged, "")
	evt.GroupID = groupID
	evt.Volume = &v
	m.bus.Publish(evt)
	return nil
}

// SetGroupMuted toggles a group's mute and refreshes its members.
func (m *Manager) SetGroupMuted(groupID string, muted bool) *models.AppError {
	m.mu.Lock()
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return models.ErrGroupNotFound(groupID)
	}
	g.Muted = muted
	m.settings.Groups[groupID] = models.GroupSettings{Volume: g.Volume, Muted: muted}
	m.reapplyLocked(g.SoundIDs)
	m.persistLocked()
	m.mu.Unlock()

	evt := events.New(events.MuteChanged, "")
	evt.GroupID = groupID
	evt.Muted = &muted
	m.bus.Publish(evt)
	return nil
}

// EffectiveVolume reports the composed level one sound is audible at.
func (m *Manager) EffectiveVolume(id string) (float64, *models.AppError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sounds[id]
	if !ok {
		return 0, models.ErrSoundNotFound(id)
	}
	return m.effectiveVolumeLocked(s), nil
}
