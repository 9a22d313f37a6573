package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sonora-audio/sonora-go/internal/models"
)

// Library is the sound definition file: the static registration input for
// the manager. Definitions are immutable once registered; editing the file
// and re-reading it only ever adds new ones.
type Library struct {
	Sounds []models.SoundConfig `json:"sounds"`
	Groups []models.SoundGroup  `json:"groups,omitempty"`
}

// LoadLibrary reads and validates a sound library file.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}

	var lib Library
	if err := json.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("library %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(lib.Sounds))
	for i, s := range lib.Sounds {
		if s.ID == "" {
			return nil, fmt.Errorf("library %s: sound %d has no id", path, i)
		}
		if s.Path == "" {
			return nil, fmt.Errorf("library %s: sound %q has no path", path, s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("library %s: duplicate sound id %q", path, s.ID)
		}
		seen[s.ID] = struct{}{}
		lib.Sounds[i].Volume = models.Clamp01(s.Volume)
	}
	for _, g := range lib.Groups {
		if g.ID == "" {
			return nil, fmt.Errorf("library %s: group with no id", path)
		}
		for _, id := range g.SoundIDs {
			if _, ok := seen[id]; !ok {
				return nil, fmt.Errorf("library %s: group %q references unknown sound %q", path, g.ID, id)
			}
		}
	}
	return &lib, nil
}
