package manager

import (
	"log/slog"
	"slices"

	"github.com/sonora-audio/sonora-go/internal/models"
)

// RegisterGroup adds or replaces a named group. Membership is a snapshot:
// every member must already be registered, and a sound belongs to at most
// one group, with the latest registration winning.
func (m *Manager) RegisterGroup(g models.SoundGroup) *models.AppError {
	if g.ID == "" {
		return models.ErrBadRequest("group id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range g.SoundIDs {
		if _, ok := m.sounds[id]; !ok {
			return models.ErrBadRequest("unknown group member: " + id)
		}
	}
	if g.Volume <= 0 {
		// zero value means unset, not silent
		g.Volume = 1.0
	}
	g.Volume = models.Clamp01(g.Volume)
	if saved, ok := m.settings.Groups[g.ID]; ok {
		g.Volume = models.Clamp01(saved.Volume)
		g.Muted = saved.Muted
	}

	for _, id := range g.SoundIDs {
		if prev, ok := m.groupOf[id]; ok && prev != g.ID {
			slog.Warn("manager: sound reassigned to new group", "id", id, "from", prev, "to", g.ID)
		}
		m.groupOf[id] = g.ID
	}
	m.groups[g.ID] = &g
	m.reapplyLocked(g.SoundIDs)
	return nil
}

// UnregisterGroup removes a group; its members fall back to instance ×
// global volume only.
func (m *Manager) UnregisterGroup(id string) *models.AppError {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return models.ErrGroupNotFound(id)
	}
	delete(m.groups, id)
	for _, sid := range g.SoundIDs {
		if m.groupOf[sid] == id {
			delete(m.groupOf, sid)
		}
	}
	m.reapplyLocked(g.SoundIDs)
	return nil
}

// Group returns a copy of one group.
func (m *Manager) Group(id string) (models.SoundGroup, *models.AppError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return models.SoundGroup{}, models.ErrGroupNotFound(id)
	}
	out := *g
	out.SoundIDs = slices.Clone(g.SoundIDs)
	return out, nil
}

// Groups returns copies of every group, sorted by id.
func (m *Manager) Groups() []models.SoundGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SoundGroup, 0, len(m.groups))
	for _, g := range m.groups {
		cp := *g
		cp.SoundIDs = slices.Clone(g.SoundIDs)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b models.SoundGroup) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}
