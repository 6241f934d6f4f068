package membership

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a map for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func key(discordID, guildID string) string {
	return discordID + ":" + guildID
}

func (s *MemoryStore) Get(_ context.Context, discordID, guildID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key(discordID, guildID)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key(record.DiscordID, record.GuildID)] = record
	return nil
}

func (s *MemoryStore) Update(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(record.DiscordID, record.GuildID)
	if _, ok := s.records[k]; !ok {
		return ErrNotFound
	}
	s.records[k] = record
	return nil
}

func (s *MemoryStore) FindByHandle(_ context.Context, guildID, handle string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.GuildID == guildID && record.RSIHandle == handle {
			return record, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *MemoryStore) ListPending(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, record := range s.records {
		if record.Status == StatusPending {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountByStatus(_ context.Context, guildID string) (map[Status]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Status]int64)
	for _, record := range s.records {
		if record.GuildID == guildID {
			out[record.Status]++
		}
	}
	return out, nil
}
