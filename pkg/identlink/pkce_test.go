package identlink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifierTakeRemoves(t *testing.T) {
	store := newVerifierStore(StateTTL, time.Now)
	store.Put("token1", "verifier1")

	v, ok := store.Take("token1")
	assert.True(t, ok)
	assert.Equal(t, "verifier1", v)

	_, ok = store.Take("token1")
	assert.False(t, ok)
}

func TestVerifierExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := newVerifierStore(StateTTL, clock)

	store.Put("token1", "verifier1")
	now = now.Add(StateTTL + time.Minute)

	_, ok := store.Take("token1")
	assert.False(t, ok)
}

func TestVerifierLazySweepOnPut(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newVerifierStore(StateTTL, func() time.Time { return now })

	store.Put("stale", "v1")
	now = now.Add(StateTTL + time.Minute)
	store.Put("fresh", "v2")

	assert.Len(t, store.entries, 1)
	_, ok := store.Take("fresh")
	assert.True(t, ok)
}
