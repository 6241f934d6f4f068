package identlink

import (
	"sync"
	"time"
)

// verifierStore holds PKCE code verifiers in process memory only, keyed by
// correlation token. Verifiers are never persisted: losing them on restart
// fails the exchange and the member retries, which is the intended
// degradation. Entries expire lazily alongside the state window.
type verifierStore struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	entries map[string]verifierEntry
}

type verifierEntry struct {
	verifier  string
	createdAt time.Time
}

func newVerifierStore(ttl time.Duration, now func() time.Time) *verifierStore {
	return &verifierStore{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]verifierEntry),
	}
}

func (s *verifierStore) Put(token, verifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	for k, e := range s.entries {
		if e.createdAt.Before(cutoff) {
			delete(s.entries, k)
		}
	}

	s.entries[token] = verifierEntry{verifier: verifier, createdAt: s.now()}
}

// Take removes and returns the verifier for a token. The second return is
// false when the verifier is missing or past its window.
func (s *verifierStore) Take(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return "", false
	}
	delete(s.entries, token)

	if s.now().Sub(entry.createdAt) > s.ttl {
		return "", false
	}
	return entry.verifier, true
}
