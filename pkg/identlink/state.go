package identlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// State binds a correlation token to the (member, guild) pair that initiated
// the link. CreatedAt is kept so expiry is judged in code rather than by
// storage TTL; an expired-but-recent token must still be distinguishable from
// an unknown one.
type State struct {
	DiscordID string    `json:"discord_id"`
	GuildID   string    `json:"guild_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StateStore persists correlation tokens. Consume removes the token and
// returns its state; a consumed or unknown token yields ErrInvalidState.
// Tokens are single-use regardless of what happens downstream.
type StateStore interface {
	Save(ctx context.Context, token string, state State) error
	Consume(ctx context.Context, token string) (State, error)
}

// stateGCTTL is garbage collection only. The 10-minute protocol window is
// enforced by the service, so this just has to outlive it comfortably.
const stateGCTTL = time.Hour

const stateKeyPrefix = "identlink:state:"

// RedisStateStore keeps correlation tokens in Redis. GETDEL makes consumption
// atomic: two racing callbacks on the same token see exactly one winner.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Save(ctx context.Context, token string, state State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, stateKeyPrefix+token, payload, stateGCTTL).Err(); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Consume(ctx context.Context, token string) (State, error) {
	payload, err := s.client.GetDel(ctx, stateKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrInvalidState
	}
	if err != nil {
		return State{}, fmt.Errorf("consuming state: %w", err)
	}

	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return State{}, fmt.Errorf("decoding state: %w", err)
	}
	return state, nil
}

// MemoryStateStore is the in-process equivalent for tests.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]State)}
}

func (s *MemoryStateStore) Save(_ context.Context, token string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[token] = state
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, token string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[token]
	if !ok {
		return State{}, ErrInvalidState
	}
	delete(s.states, token)
	return state, nil
}
