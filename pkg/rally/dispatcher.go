package rally

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/permissions"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentMoves = 8

var (
	// ErrUnauthorized: the actor lacks a trigger role and is not an
	// administrator, or the source channel is not on the allow list.
	// Callers must stay silent: no report is sent.
	ErrUnauthorized = errors.New("rally trigger not authorized")

	// ErrDisabled: the rally feature is switched off for the guild.
	ErrDisabled = errors.New("rally disabled")

	// ErrNotConfigured: no rally role or target channel is set.
	ErrNotConfigured = errors.New("rally not configured")
)

// Gateway is the slice of platform operations a dispatch needs.
type Gateway interface {
	RallyCandidates(guildID, roleID, excludeChannelID string) ([]string, error)
	MoveToVoice(guildID, userID, channelID string) error
}

// Trigger describes the signal that may start a rally: who sent it, with what
// effective permissions, and from which channel.
type Trigger struct {
	GuildID         string
	ActorID         string
	ActorRoleIDs    []string
	ActorPermission int64
	SourceChannelID string
}

// Report is the aggregate outcome of one dispatch. Partial success is the
// expected steady state; there is no rollback.
type Report struct {
	Moved  int
	Failed int
	// TargetChannelID echoes where members were sent, for reply rendering.
	TargetChannelID string
	RallyRoleID     string
}

// Nothing reports a dispatch that found no one to move.
func (r Report) Nothing() bool {
	return r.Moved == 0 && r.Failed == 0
}

// Dispatcher relocates every rally-role holder into the target voice channel
// on an authorized trigger.
type Dispatcher struct {
	settings *guildsettings.Service
	gateway  Gateway
	events   *events.Publisher
}

func New(settings *guildsettings.Service, gateway Gateway, publisher *events.Publisher) *Dispatcher {
	return &Dispatcher{settings: settings, gateway: gateway, events: publisher}
}

// Dispatch authorizes the trigger and concurrently moves each candidate.
// Moves are independent: one member's failure never blocks the others.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger Trigger) (Report, error) {
	settings, err := d.settings.Get(ctx, trigger.GuildID)
	if err != nil {
		return Report{}, err
	}

	if !settings.RallyEnabled {
		return Report{}, ErrDisabled
	}
	if settings.RallyRoleID == "" || settings.RallyChannelID == "" {
		return Report{}, ErrNotConfigured
	}

	// Source channels are default-deny: an empty list means no channel may
	// trigger a rally.
	if !contains(settings.RallyTriggerChannels, trigger.SourceChannelID) {
		return Report{}, ErrUnauthorized
	}

	actor := permissions.Actor{
		ID:          trigger.ActorID,
		RoleIDs:     trigger.ActorRoleIDs,
		Permissions: trigger.ActorPermission,
	}
	if !permissions.Authorized(actor, settings, permissions.TriggerRally) {
		logger.WithFields(map[string]interface{}{
			"user_id":  trigger.ActorID,
			"guild_id": trigger.GuildID,
		}).Info("Rally trigger attempted without permission")
		return Report{}, ErrUnauthorized
	}

	report := Report{TargetChannelID: settings.RallyChannelID, RallyRoleID: settings.RallyRoleID}

	candidates, err := d.gateway.RallyCandidates(trigger.GuildID, settings.RallyRoleID, settings.RallyChannelID)
	if err != nil {
		return report, err
	}
	if len(candidates) == 0 {
		return report, nil
	}

	var moved, failed atomic.Int64
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentMoves)

	for _, userID := range candidates {
		userID := userID
		group.Go(func() error {
			if err := d.gateway.MoveToVoice(trigger.GuildID, userID, settings.RallyChannelID); err != nil {
				failed.Add(1)
				logger.WithError(err).WithFields(map[string]interface{}{
					"member_id": userID,
					"guild_id":  trigger.GuildID,
				}).Error("Failed to move member for rally")
				return nil
			}
			moved.Add(1)
			return nil
		})
	}
	_ = group.Wait()

	report.Moved = int(moved.Load())
	report.Failed = int(failed.Load())

	logger.WithFields(map[string]interface{}{
		"triggered_by": trigger.ActorID,
		"guild_id":     trigger.GuildID,
		"moved":        report.Moved,
		"failed":       report.Failed,
	}).Info("Rally triggered")

	d.events.Publish(ctx, events.TypeRallyTriggered, trigger.GuildID, trigger.ActorID, map[string]interface{}{
		"moved":  report.Moved,
		"failed": report.Failed,
	})

	return report, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
