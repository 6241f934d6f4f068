package guildsettings

const (
	DefaultTimeoutHours = 72
	MinTimeoutHours     = 1
	MaxTimeoutHours     = 720
)

// Settings is the per-guild configuration. A missing row is equivalent to
// Defaults(); rows are created lazily on first write.
type Settings struct {
	GuildID string

	// Verification
	TimeoutHours   int
	Blocklist      []string
	LogChannelID   string
	VerifiedRoleID string

	// Rally (call to arms)
	RallyRoleID          string
	RallyChannelID       string
	RallyAllowedRoles    []string
	RallyTriggerChannels []string

	VerificationEnabled bool
	RallyEnabled        bool
}

func Defaults(guildID string) Settings {
	return Settings{
		GuildID:             guildID,
		TimeoutHours:        DefaultTimeoutHours,
		VerificationEnabled: false,
		RallyEnabled:        true,
	}
}
