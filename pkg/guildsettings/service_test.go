package guildsettings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsDefaultsWhenUnconfigured(t *testing.T) {
	svc := NewService(NewMemoryStore())

	settings, err := svc.Get(context.Background(), "guild1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeoutHours, settings.TimeoutHours)
	assert.False(t, settings.VerificationEnabled)
	assert.True(t, settings.RallyEnabled)
	assert.Empty(t, settings.RallyTriggerChannels)
}

func TestSetTimeoutBounds(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	_, err := svc.SetTimeoutHours(ctx, "guild1", 0)
	assert.ErrorIs(t, err, ErrTimeoutOutOfRange)
	_, err = svc.SetTimeoutHours(ctx, "guild1", 721)
	assert.ErrorIs(t, err, ErrTimeoutOutOfRange)

	settings, err := svc.SetTimeoutHours(ctx, "guild1", 24)
	require.NoError(t, err)
	assert.Equal(t, 24, settings.TimeoutHours)

	// Lazy row creation keeps later reads consistent.
	settings, err = svc.Get(ctx, "guild1")
	require.NoError(t, err)
	assert.Equal(t, 24, settings.TimeoutHours)
}

func TestBlocklistAddRemove(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	settings, err := svc.AddBlocklistTag(ctx, "guild1", "GNET")
	require.NoError(t, err)
	assert.Equal(t, []string{"GNET"}, settings.Blocklist)

	// Duplicate under different case is not added twice.
	settings, err = svc.AddBlocklistTag(ctx, "guild1", "gnet")
	require.NoError(t, err)
	assert.Len(t, settings.Blocklist, 1)

	settings, err = svc.RemoveBlocklistTag(ctx, "guild1", "gNeT")
	require.NoError(t, err)
	assert.Empty(t, settings.Blocklist)
}

func TestFeatureToggles(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	settings, err := svc.SetVerificationEnabled(ctx, "guild1", true)
	require.NoError(t, err)
	assert.True(t, settings.VerificationEnabled)

	settings, err = svc.SetRallyEnabled(ctx, "guild1", false)
	require.NoError(t, err)
	assert.False(t, settings.RallyEnabled)
	// Earlier writes survive.
	assert.True(t, settings.VerificationEnabled)
}
