package rally

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeGateway struct {
	mu         sync.Mutex
	candidates []string
	moveErr    map[string]error
	moved      []string
	moveCalls  int
}

func (g *fakeGateway) RallyCandidates(_, _, _ string) ([]string, error) {
	return g.candidates, nil
}

func (g *fakeGateway) MoveToVoice(_, userID, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.moveCalls++
	if err, ok := g.moveErr[userID]; ok {
		return err
	}
	g.moved = append(g.moved, userID)
	return nil
}

func configuredSettings(t *testing.T) *guildsettings.Service {
	t.Helper()
	ctx := context.Background()
	svc := guildsettings.NewService(guildsettings.NewMemoryStore())

	_, err := svc.SetRallyRole(ctx, "guild1", "rally-role")
	require.NoError(t, err)
	_, err = svc.SetRallyChannel(ctx, "guild1", "target-vc")
	require.NoError(t, err)
	_, err = svc.SetRallyAllowedRoles(ctx, "guild1", []string{"officers"})
	require.NoError(t, err)
	_, err = svc.SetRallyTriggerChannels(ctx, "guild1", []string{"command-channel"})
	require.NoError(t, err)
	return svc
}

func authorizedTrigger() Trigger {
	return Trigger{
		GuildID:         "guild1",
		ActorID:         "officer1",
		ActorRoleIDs:    []string{"officers"},
		SourceChannelID: "command-channel",
	}
}

func newDispatcher(settings *guildsettings.Service, gateway Gateway) *Dispatcher {
	return New(settings, gateway, events.NewPublisher(nil, ""))
}

func TestDispatchMovesCandidates(t *testing.T) {
	gateway := &fakeGateway{
		// 5 role holders: 3 in other voice channels (candidates), 2 not
		// connected (excluded upstream by candidate resolution).
		candidates: []string{"a", "b", "c"},
		moveErr:    map[string]error{"c": errors.New("permission denied")},
	}
	d := newDispatcher(configuredSettings(t), gateway)

	report, err := d.Dispatch(context.Background(), authorizedTrigger())
	require.NoError(t, err)
	assert.Equal(t, 3, gateway.moveCalls)
	assert.Equal(t, 2, report.Moved)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "target-vc", report.TargetChannelID)
}

func TestDispatchNothingToMove(t *testing.T) {
	gateway := &fakeGateway{}
	d := newDispatcher(configuredSettings(t), gateway)

	report, err := d.Dispatch(context.Background(), authorizedTrigger())
	require.NoError(t, err)
	assert.True(t, report.Nothing())
	assert.Zero(t, gateway.moveCalls)
}

func TestDispatchUnauthorizedActor(t *testing.T) {
	gateway := &fakeGateway{candidates: []string{"a"}}
	d := newDispatcher(configuredSettings(t), gateway)

	trigger := authorizedTrigger()
	trigger.ActorRoleIDs = []string{"grunts"}

	_, err := d.Dispatch(context.Background(), trigger)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, gateway.moveCalls)
}

func TestDispatchAdministratorBypassesRoleCheck(t *testing.T) {
	gateway := &fakeGateway{candidates: []string{"a"}}
	d := newDispatcher(configuredSettings(t), gateway)

	trigger := authorizedTrigger()
	trigger.ActorRoleIDs = nil
	trigger.ActorPermission = discordgo.PermissionAdministrator

	report, err := d.Dispatch(context.Background(), trigger)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Moved)
}

func TestDispatchSourceChannelDefaultDeny(t *testing.T) {
	ctx := context.Background()
	settings := configuredSettings(t)
	// Clear the trigger-channel list: absence means no channel is allowed.
	_, err := settings.SetRallyTriggerChannels(ctx, "guild1", nil)
	require.NoError(t, err)

	gateway := &fakeGateway{candidates: []string{"a"}}
	d := newDispatcher(settings, gateway)

	_, err = d.Dispatch(ctx, authorizedTrigger())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, gateway.moveCalls)
}

func TestDispatchWrongSourceChannel(t *testing.T) {
	gateway := &fakeGateway{candidates: []string{"a"}}
	d := newDispatcher(configuredSettings(t), gateway)

	trigger := authorizedTrigger()
	trigger.SourceChannelID = "random-channel"

	_, err := d.Dispatch(context.Background(), trigger)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDispatchDisabled(t *testing.T) {
	ctx := context.Background()
	settings := configuredSettings(t)
	_, err := settings.SetRallyEnabled(ctx, "guild1", false)
	require.NoError(t, err)

	d := newDispatcher(settings, &fakeGateway{candidates: []string{"a"}})

	_, err = d.Dispatch(ctx, authorizedTrigger())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestDispatchNotConfigured(t *testing.T) {
	d := newDispatcher(guildsettings.NewService(guildsettings.NewMemoryStore()), &fakeGateway{})

	trigger := authorizedTrigger()
	_, err := d.Dispatch(context.Background(), trigger)
	// Feature defaults to enabled but has no role/channel configured.
	assert.ErrorIs(t, err, ErrNotConfigured)
}
