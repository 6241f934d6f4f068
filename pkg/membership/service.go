package membership

import (
	"context"
	"errors"
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
)

// Service owns the membership lifecycle: pending on join, verified or flagged
// on identity link, kicked on timeout, back to pending on revoke or rejoin.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// EnsureRecord returns the existing record or creates a fresh pending one.
func (s *Service) EnsureRecord(ctx context.Context, discordID, guildID string) (Record, error) {
	record, err := s.store.Get(ctx, discordID, guildID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	record = Record{
		DiscordID: discordID,
		GuildID:   guildID,
		Status:    StatusPending,
		JoinedAt:  s.now().UTC(),
	}
	if err := s.store.Create(ctx, record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// RecordJoin resets an existing record to pending (rejoin after a kick) or
// creates a new one. The join timestamp anchors the timeout clock, so this
// must run before any welcome notification goes out.
func (s *Service) RecordJoin(ctx context.Context, discordID, guildID string) (Record, error) {
	record, err := s.store.Get(ctx, discordID, guildID)
	if errors.Is(err, ErrNotFound) {
		return s.EnsureRecord(ctx, discordID, guildID)
	}
	if err != nil {
		return Record{}, err
	}

	record.Status = StatusPending
	record.JoinedAt = s.now().UTC()
	record.KickedAt = nil
	if err := s.store.Update(ctx, record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// ApplyIdentityResult commits the outcome of a completed identity link:
// flagged when the blocklist matched, verified otherwise. Returns
// ErrAlreadyVerified without touching the record when it is already verified;
// callers surface that as information, not failure.
func (s *Service) ApplyIdentityResult(ctx context.Context, discordID, guildID string, profile *rsi.Profile, blocked bool) (Record, error) {
	record, err := s.EnsureRecord(ctx, discordID, guildID)
	if err != nil {
		return Record{}, err
	}

	if record.Status == StatusVerified {
		return record, ErrAlreadyVerified
	}

	now := s.now().UTC()
	record.Status = StatusVerified
	if blocked {
		record.Status = StatusFlagged
	}
	record.RSIHandle = profile.Handle
	record.CitizenRecord = profile.CitizenRecord
	record.Orgs = profile.Orgs
	record.RSIAccountCreated = profile.AccountCreated
	record.VerifiedAt = &now

	if err := s.store.Update(ctx, record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// Revoke resets a record to pending, clears every RSI identity field, and
// re-anchors the timeout clock. The caller is responsible for retracting any
// verified role that was granted.
func (s *Service) Revoke(ctx context.Context, discordID, guildID string) (Record, error) {
	record, err := s.store.Get(ctx, discordID, guildID)
	if err != nil {
		return Record{}, err
	}

	record.Status = StatusPending
	record.RSIHandle = ""
	record.CitizenRecord = ""
	record.Orgs = nil
	record.RSIAccountCreated = ""
	record.VerifiedAt = nil
	record.JoinedAt = s.now().UTC()
	record.KickedAt = nil

	if err := s.store.Update(ctx, record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// MarkKicked records a timeout removal. Idempotent on already-kicked records.
func (s *Service) MarkKicked(ctx context.Context, discordID, guildID string) (Record, error) {
	record, err := s.store.Get(ctx, discordID, guildID)
	if err != nil {
		return Record{}, err
	}

	if record.Status == StatusKicked {
		return record, nil
	}

	now := s.now().UTC()
	record.Status = StatusKicked
	record.KickedAt = &now

	if err := s.store.Update(ctx, record); err != nil {
		return Record{}, err
	}
	return record, nil
}

func (s *Service) Lookup(ctx context.Context, discordID, guildID string) (Record, error) {
	return s.store.Get(ctx, discordID, guildID)
}

func (s *Service) LookupByHandle(ctx context.Context, guildID, handle string) (Record, error) {
	return s.store.FindByHandle(ctx, guildID, handle)
}

func (s *Service) ListPending(ctx context.Context) ([]Record, error) {
	return s.store.ListPending(ctx)
}

func (s *Service) StatusCounts(ctx context.Context, guildID string) (map[Status]int64, error) {
	return s.store.CountByStatus(ctx, guildID)
}
