package config

import (
	"sync"

	"github.com/sonora-audio/sonora-go/internal/models"
)

// MemStore is an in-memory Store for tests and embedded use.
type MemStore struct {
	mu       sync.Mutex
	settings models.Settings
	saves    int
}

// NewMemStore creates a MemStore seeded with default settings.
func NewMemStore() *MemStore {
	return &MemStore{settings: models.DefaultSettings()}
}

func (m *MemStore) Load() (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := m.settings
	return &cp, nil
}

func (m *MemStore) Save(settings *models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = *settings
	m.saves++
	return nil
}

func (m *MemStore) Path() string { return ":memory:" }
func (m *MemStore) Flush() error { return nil }

// Saves returns how many Save calls the store has seen.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var _ Store = (*MemStore)(nil)
