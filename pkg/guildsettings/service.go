package guildsettings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrTimeoutOutOfRange = fmt.Errorf("timeout must be between %d and %d hours", MinTimeoutHours, MaxTimeoutHours)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the stored settings or all-defaults when no row exists yet.
func (s *Service) Get(ctx context.Context, guildID string) (Settings, error) {
	settings, err := s.store.Get(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		return Defaults(guildID), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *Service) update(ctx context.Context, guildID string, mutate func(*Settings)) (Settings, error) {
	settings, err := s.Get(ctx, guildID)
	if err != nil {
		return Settings{}, err
	}
	mutate(&settings)
	if err := s.store.Save(ctx, settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s *Service) SetTimeoutHours(ctx context.Context, guildID string, hours int) (Settings, error) {
	if hours < MinTimeoutHours || hours > MaxTimeoutHours {
		return Settings{}, ErrTimeoutOutOfRange
	}
	return s.update(ctx, guildID, func(st *Settings) { st.TimeoutHours = hours })
}

func (s *Service) SetLogChannel(ctx context.Context, guildID, channelID string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.LogChannelID = channelID })
}

func (s *Service) SetVerifiedRole(ctx context.Context, guildID, roleID string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.VerifiedRoleID = roleID })
}

// AddBlocklistTag is a no-op when the tag is already present (case-insensitive).
func (s *Service) AddBlocklistTag(ctx context.Context, guildID, tag string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) {
		for _, existing := range st.Blocklist {
			if strings.EqualFold(existing, tag) {
				return
			}
		}
		st.Blocklist = append(st.Blocklist, tag)
	})
}

func (s *Service) RemoveBlocklistTag(ctx context.Context, guildID, tag string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) {
		kept := st.Blocklist[:0]
		for _, existing := range st.Blocklist {
			if !strings.EqualFold(existing, tag) {
				kept = append(kept, existing)
			}
		}
		st.Blocklist = kept
	})
}

func (s *Service) SetRallyRole(ctx context.Context, guildID, roleID string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.RallyRoleID = roleID })
}

func (s *Service) SetRallyChannel(ctx context.Context, guildID, channelID string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.RallyChannelID = channelID })
}

func (s *Service) SetRallyAllowedRoles(ctx context.Context, guildID string, roleIDs []string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.RallyAllowedRoles = roleIDs })
}

func (s *Service) SetRallyTriggerChannels(ctx context.Context, guildID string, channelIDs []string) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.RallyTriggerChannels = channelIDs })
}

func (s *Service) SetVerificationEnabled(ctx context.Context, guildID string, enabled bool) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.VerificationEnabled = enabled })
}

func (s *Service) SetRallyEnabled(ctx context.Context, guildID string, enabled bool) (Settings, error) {
	return s.update(ctx, guildID, func(st *Settings) { st.RallyEnabled = enabled })
}
