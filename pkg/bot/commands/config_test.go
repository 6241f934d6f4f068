package commands

import (
	"os"
	"testing"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

func TestToggle(t *testing.T) {
	assert.Equal(t, []string{"a"}, toggle(nil, "a", false))
	assert.Equal(t, []string{"a", "b"}, toggle([]string{"a"}, "b", false))

	// Adding an already-present ID does not duplicate it.
	assert.Equal(t, []string{"b", "a"}, toggle([]string{"a", "b"}, "a", false))

	assert.Equal(t, []string{"b"}, toggle([]string{"a", "b"}, "a", true))
	assert.Empty(t, toggle([]string{"a"}, "a", true))

	// Removing an absent ID is a no-op.
	assert.Equal(t, []string{"a"}, toggle([]string{"a"}, "b", true))
}

func TestMentionHelpers(t *testing.T) {
	assert.Equal(t, "Not set", mentionRole(""))
	assert.Equal(t, "<@&r1>", mentionRole("r1"))
	assert.Equal(t, "None", mentionChannels(nil))
	assert.Equal(t, "<#c1>, <#c2>", mentionChannels([]string{"c1", "c2"}))
}
