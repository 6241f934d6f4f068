package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsRender(t *testing.T) {
	c := Default()

	welcome := c.WelcomeText("RagTag", 72, "http://localhost:3000/auth/start?guild=g&user=u")
	assert.Contains(t, welcome, "**RagTag**")
	assert.Contains(t, welcome, "**72 hours**")
	assert.Contains(t, welcome, "/auth/start")

	assert.Contains(t, c.KickAuditText("123", 72), "<@123>")
	assert.Contains(t, c.RallyEmptyText("role9"), "<@&role9>")
}

func TestRallyMovedPluralAndFailures(t *testing.T) {
	c := Default()

	assert.Equal(t, "Moved **1** member to <#ch>.", c.RallyMovedText(1, 0, "ch"))
	assert.Equal(t, "Moved **2** members to <#ch> (1 failed).", c.RallyMovedText(2, 1, "ch"))
}

func TestOrgList(t *testing.T) {
	assert.Equal(t, "None", OrgList(nil))
	assert.Equal(t, "RagTag [RTAG], Ghost Net [GNET]", OrgList([]rsi.Org{
		{Name: "RagTag", Tag: "RTAG"},
		{Name: "Ghost Net", Tag: "GNET"},
	}))
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reminder: \"custom reminder for %s\"\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom reminder for RagTag", c.ReminderText("RagTag"))
	// Entries absent from the file keep their defaults.
	assert.Contains(t, c.KickDMText("RagTag"), "removed from **RagTag**")
}

func TestLoadEmptyPathIsDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}
