package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/discord"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/messages"
	"golang.org/x/sync/errgroup"
)

const (
	startupDelay   = 5 * time.Second
	reminderWindow = time.Hour
	maxConcurrent  = 4
)

// Gateway is the slice of platform operations the sweep needs.
type Gateway interface {
	GuildName(guildID string) (string, error)
	KickMember(guildID, userID, reason string) error
	SendDM(userID, content string) error
	SendChannelMessage(channelID, content string) error
}

// Sweeper periodically walks every pending membership and enforces the
// guild's verification deadline: members past it are removed, members inside
// the final hour get a single reminder.
type Sweeper struct {
	members  *membership.Service
	settings *guildsettings.Service
	gateway  Gateway
	catalog  *messages.Catalog
	events   *events.Publisher
	interval time.Duration
	now      func() time.Time
}

func New(members *membership.Service, settings *guildsettings.Service, gateway Gateway, catalog *messages.Catalog, publisher *events.Publisher, interval time.Duration) *Sweeper {
	return &Sweeper{
		members:  members,
		settings: settings,
		gateway:  gateway,
		catalog:  catalog,
		events:   publisher,
		interval: interval,
		now:      time.Now,
	}
}

// WithClock overrides the sweeper clock. Tests only.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Start runs the sweep loop until ctx is cancelled: one shortly-delayed run
// at startup, then one per interval. A single goroutine runs every sweep, so
// a slow sweep delays the next tick instead of overlapping it.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		select {
		case <-time.After(startupDelay):
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Sweep runs one pass over all pending memberships. Failures are isolated per
// guild and per member; nothing aborts the rest of the pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	pending, err := s.members.ListPending(ctx)
	if err != nil {
		logger.WithError(err).Error("Timeout sweep could not list pending members")
		return
	}
	if len(pending) == 0 {
		return
	}

	byGuild := make(map[string][]membership.Record)
	for _, record := range pending {
		byGuild[record.GuildID] = append(byGuild[record.GuildID], record)
	}

	for guildID, records := range byGuild {
		s.sweepGuild(ctx, guildID, records)
	}
}

func (s *Sweeper) sweepGuild(ctx context.Context, guildID string, records []membership.Record) {
	settings, err := s.settings.Get(ctx, guildID)
	if err != nil {
		logger.WithError(err).WithField("guild_id", guildID).Warn("Skipping guild in timeout sweep: settings unavailable")
		return
	}

	guildName, err := s.gateway.GuildName(guildID)
	if err != nil {
		logger.WithError(err).WithField("guild_id", guildID).Warn("Skipping guild in timeout sweep: guild unavailable")
		return
	}

	timeout := time.Duration(settings.TimeoutHours) * time.Hour
	now := s.now()

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrent)

	for _, record := range records {
		record := record
		group.Go(func() error {
			remaining := timeout - now.Sub(record.JoinedAt)
			switch {
			case remaining <= 0:
				s.expire(ctx, record, settings, guildName)
			case remaining <= reminderWindow && remaining > reminderWindow-s.interval:
				// One-shot window: exactly one sweep sees a member here, so
				// each pending member gets at most one reminder.
				if err := s.gateway.SendDM(record.DiscordID, s.catalog.ReminderText(guildName)); err != nil {
					logger.WithError(err).WithFields(map[string]interface{}{
						"discord_id": record.DiscordID,
						"guild_id":   record.GuildID,
					}).Debug("Could not send verification reminder")
				}
			}
			return nil
		})
	}

	_ = group.Wait()
}

func (s *Sweeper) expire(ctx context.Context, record membership.Record, settings guildsettings.Settings, guildName string) {
	log := logger.WithFields(map[string]interface{}{
		"discord_id": record.DiscordID,
		"guild_id":   record.GuildID,
	})

	if err := s.gateway.SendDM(record.DiscordID, s.catalog.KickDMText(guildName)); err != nil {
		log.Debug("Could not DM member before timeout kick")
	}

	err := s.gateway.KickMember(record.GuildID, record.DiscordID, "RSI verification timeout")
	if err != nil && !errors.Is(err, discord.ErrMemberNotFound) {
		log.WithError(err).Warn("Could not kick member, will retry next sweep")
		return
	}
	// A member who already left counts as removed.

	if _, err := s.members.MarkKicked(ctx, record.DiscordID, record.GuildID); err != nil {
		log.WithError(err).Error("Could not mark member as kicked")
		return
	}

	log.Info("Kicked member for verification timeout")
	s.events.Publish(ctx, events.TypeMemberKicked, record.GuildID, record.DiscordID, map[string]interface{}{
		"timeout_hours": settings.TimeoutHours,
	})

	if settings.LogChannelID != "" {
		if err := s.gateway.SendChannelMessage(settings.LogChannelID, s.catalog.KickAuditText(record.DiscordID, settings.TimeoutHours)); err != nil {
			log.WithError(err).Debug("Could not write kick audit message")
		}
	}
}
