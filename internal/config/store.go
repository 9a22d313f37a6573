// Package config handles loading and saving sonora's persisted settings and
// the sound definition library.
package config

import "github.com/sonora-audio/sonora-go/internal/models"

// Store is the interface for persisting volume/mute settings.
type Store interface {
	// Load loads the current settings. Returns DefaultSettings if no file
	// exists.
	Load() (*models.Settings, error)

	// Save persists the settings. Implementations may debounce rapid saves.
	Save(settings *models.Settings) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending settings.
	Flush() error
}
