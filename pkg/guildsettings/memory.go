package guildsettings

import (
	"context"
	"sync"
)

// MemoryStore backs the settings service in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	settings map[string]Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: make(map[string]Settings)}
}

func (s *MemoryStore) Get(_ context.Context, guildID string) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[guildID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return settings, nil
}

func (s *MemoryStore) Save(_ context.Context, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.GuildID] = settings
	return nil
}
