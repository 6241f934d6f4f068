package messages

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
	"gopkg.in/yaml.v3"
)

// Catalog holds every user-facing notification format. Operators can override
// any entry from a YAML file; omitted entries keep their defaults.
type Catalog struct {
	Welcome       string `yaml:"welcome"`
	Reminder      string `yaml:"reminder"`
	KickDM        string `yaml:"kick_dm"`
	KickAudit     string `yaml:"kick_audit"`
	VerifiedDM    string `yaml:"verified_dm"`
	FlaggedDM     string `yaml:"flagged_dm"`
	VerifiedAudit string `yaml:"verified_audit"`
	FlaggedAudit  string `yaml:"flagged_audit"`
	RallyMoved    string `yaml:"rally_moved"`
	RallyEmpty    string `yaml:"rally_empty"`
}

func Default() *Catalog {
	return &Catalog{
		Welcome: "Welcome! To access **%s**, you need to link your Roberts Space Industries account.\n\n" +
			"Open the link below to verify your RSI identity. You have **%d hours** to complete " +
			"verification before being removed from the server.\n\n%s\n\n" +
			"If you have any issues, contact a server moderator.",
		Reminder: "⏰ **Reminder**: You have less than 1 hour to verify your RSI account in **%s** " +
			"before being removed. Check your earlier DM for the verification link.",
		KickDM: "You have been removed from **%s** for not completing RSI account verification " +
			"within the required timeframe. You may rejoin and try again.",
		KickAudit:  "**🚫 Kicked**: <@%s> — did not verify RSI account within %d hours.",
		VerifiedDM: "Your RSI account **%s** has been verified! You now have full access to **%s**.",
		FlaggedDM: "Your RSI account **%s** has been linked, but your membership has been **flagged** " +
			"for moderator review due to org membership. Please wait for a moderator to approve your access.",
		VerifiedAudit: "**✅ Verified**: <@%s> → RSI: **%s** (Record #%s)\nOrgs: %s\nAccount created: %s",
		FlaggedAudit:  "**⚠️ FLAGGED**: <@%s> → RSI: **%s** (Record #%s)\nOrgs: %s\nAccount created: %s",
		RallyMoved:    "Moved **%d** member%s to <#%s>%s.",
		RallyEmpty:    "No members with <@&%s> are currently in voice channels to move.",
	}
}

// Load reads overrides from a YAML file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Catalog, error) {
	catalog := Default()
	if path == "" {
		return catalog, nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(content, catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Catalog) WelcomeText(guildName string, timeoutHours int, verifyURL string) string {
	return fmt.Sprintf(c.Welcome, guildName, timeoutHours, verifyURL)
}

func (c *Catalog) ReminderText(guildName string) string {
	return fmt.Sprintf(c.Reminder, guildName)
}

func (c *Catalog) KickDMText(guildName string) string {
	return fmt.Sprintf(c.KickDM, guildName)
}

func (c *Catalog) KickAuditText(discordID string, timeoutHours int) string {
	return fmt.Sprintf(c.KickAudit, discordID, timeoutHours)
}

func (c *Catalog) VerifiedDMText(handle, guildName string) string {
	return fmt.Sprintf(c.VerifiedDM, handle, guildName)
}

func (c *Catalog) FlaggedDMText(handle string) string {
	return fmt.Sprintf(c.FlaggedDM, handle)
}

func (c *Catalog) VerifiedAuditText(discordID, handle, citizenRecord, orgList, accountCreated string) string {
	return fmt.Sprintf(c.VerifiedAudit, discordID, handle, citizenRecord, orgList, accountCreated)
}

func (c *Catalog) FlaggedAuditText(discordID, handle, citizenRecord, orgList, accountCreated string) string {
	return fmt.Sprintf(c.FlaggedAudit, discordID, handle, citizenRecord, orgList, accountCreated)
}

func (c *Catalog) RallyMovedText(moved, failed int, channelID string) string {
	plural := "s"
	if moved == 1 {
		plural = ""
	}
	suffix := ""
	if failed > 0 {
		suffix = fmt.Sprintf(" (%d failed)", failed)
	}
	return fmt.Sprintf(c.RallyMoved, moved, plural, channelID, suffix)
}

func (c *Catalog) RallyEmptyText(roleID string) string {
	return fmt.Sprintf(c.RallyEmpty, roleID)
}

// OrgList renders "Name [TAG], ..." for audit lines, or "None".
func OrgList(orgs []rsi.Org) string {
	if len(orgs) == 0 {
		return "None"
	}
	parts := make([]string, 0, len(orgs))
	for _, org := range orgs {
		parts = append(parts, fmt.Sprintf("%s [%s]", org.Name, org.Tag))
	}
	return strings.Join(parts, ", ")
}
