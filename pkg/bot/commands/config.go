package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/permissions"
	"github.com/bwmarrin/discordgo"
)

// Config manages per-guild settings: verification timeout, blocklist, roles,
// channels, and feature switches.
func Config(deps Deps) *Command {
	manage := int64(discordgo.PermissionManageServer)
	return &Command{
		Definition: &discordgo.ApplicationCommand{
			Name:                     "config",
			Description:              "Configure membership verification and rally",
			DefaultMemberPermissions: &manage,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show the current configuration",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "timeout",
					Description: "Set the verification timeout in hours",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "hours",
							Description: "Hours a new member has to verify (1-720)",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "log-channel",
					Description: "Set the audit log channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionChannel,
							Name:        "channel",
							Description: "Channel for verification and kick audits",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "verified-role",
					Description: "Set the role granted to verified members",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role to grant on verification",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "feature",
					Description: "Enable or disable a feature",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "name",
							Description: "The feature to toggle",
							Required:    true,
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "verification", Value: "verification"},
								{Name: "rally", Value: "rally"},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "enabled",
							Description: "Whether the feature is enabled",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "blocklist",
					Description: "Manage the org blocklist",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "add",
							Description: "Add an org tag to the blocklist",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionString,
									Name:        "tag",
									Description: "Org tag to block",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "remove",
							Description: "Remove an org tag from the blocklist",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionString,
									Name:        "tag",
									Description: "Org tag to unblock",
									Required:    true,
								},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "rally",
					Description: "Configure the rally feature",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "role",
							Description: "Set the role whose holders get rallied",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionRole,
									Name:        "role",
									Description: "The rally role",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "channel",
							Description: "Set the voice channel members are rallied into",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionChannel,
									Name:        "channel",
									Description: "Target voice channel",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "allow-role",
							Description: "Allow or disallow a role to trigger rallies",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionRole,
									Name:        "role",
									Description: "The triggering role",
									Required:    true,
								},
								{
									Type:        discordgo.ApplicationCommandOptionBoolean,
									Name:        "remove",
									Description: "Remove instead of add",
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "trigger-channel",
							Description: "Allow or disallow a channel as a rally trigger source",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionChannel,
									Name:        "channel",
									Description: "The trigger channel",
									Required:    true,
								},
								{
									Type:        discordgo.ApplicationCommandOptionBoolean,
									Name:        "remove",
									Description: "Remove instead of add",
								},
							},
						},
					},
				},
			},
		},
		Handle: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			ctx := context.Background()

			settings, err := deps.Settings.Get(ctx, i.GuildID)
			if err != nil {
				logger.WithError(err).Error("Failed to load guild settings")
				respond(s, i, "Something went wrong, please try again later.", true)
				return
			}

			actor := permissions.Actor{
				ID:          i.Member.User.ID,
				RoleIDs:     i.Member.Roles,
				Permissions: i.Member.Permissions,
			}
			if !permissions.Authorized(actor, settings, permissions.AdministerConfig) {
				respond(s, i, "You do not have permission to do that.", true)
				return
			}

			sub := i.ApplicationCommandData().Options[0]
			switch sub.Name {
			case "show":
				respondEmbed(s, i, configEmbed(settings))
			case "timeout":
				handleTimeout(ctx, deps, s, i, sub)
			case "log-channel":
				channel := subOptions(sub)["channel"].ChannelValue(s)
				if _, err := deps.Settings.SetLogChannel(ctx, i.GuildID, channel.ID); err != nil {
					configFailed(s, i, err)
					return
				}
				respond(s, i, fmt.Sprintf("Audit log channel set to <#%s>.", channel.ID), true)
			case "verified-role":
				role := subOptions(sub)["role"].RoleValue(s, i.GuildID)
				if _, err := deps.Settings.SetVerifiedRole(ctx, i.GuildID, role.ID); err != nil {
					configFailed(s, i, err)
					return
				}
				respond(s, i, fmt.Sprintf("Verified role set to <@&%s>.", role.ID), true)
			case "feature":
				handleFeature(ctx, deps, s, i, sub)
			case "blocklist":
				handleBlocklist(ctx, deps, s, i, sub.Options[0])
			case "rally":
				handleRally(ctx, deps, s, i, settings, sub.Options[0])
			}
		},
	}
}

func handleTimeout(ctx context.Context, deps Deps, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	hours := int(subOptions(sub)["hours"].IntValue())
	if _, err := deps.Settings.SetTimeoutHours(ctx, i.GuildID, hours); err != nil {
		if errors.Is(err, guildsettings.ErrTimeoutOutOfRange) {
			respond(s, i, fmt.Sprintf("Timeout must be between %d and %d hours.",
				guildsettings.MinTimeoutHours, guildsettings.MaxTimeoutHours), true)
			return
		}
		configFailed(s, i, err)
		return
	}
	respond(s, i, fmt.Sprintf("Verification timeout set to **%d hours**.", hours), true)
}

func handleFeature(ctx context.Context, deps Deps, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	opts := subOptions(sub)
	name := opts["name"].StringValue()
	enabled := opts["enabled"].BoolValue()

	var err error
	switch name {
	case "verification":
		_, err = deps.Settings.SetVerificationEnabled(ctx, i.GuildID, enabled)
	case "rally":
		_, err = deps.Settings.SetRallyEnabled(ctx, i.GuildID, enabled)
	}
	if err != nil {
		configFailed(s, i, err)
		return
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	respond(s, i, fmt.Sprintf("Feature **%s** is now %s.", name, state), true)
}

func handleBlocklist(ctx context.Context, deps Deps, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	tag := subOptions(sub)["tag"].StringValue()

	var err error
	switch sub.Name {
	case "add":
		_, err = deps.Settings.AddBlocklistTag(ctx, i.GuildID, tag)
	case "remove":
		_, err = deps.Settings.RemoveBlocklistTag(ctx, i.GuildID, tag)
	}
	if err != nil {
		configFailed(s, i, err)
		return
	}

	if sub.Name == "add" {
		respond(s, i, fmt.Sprintf("Org tag **%s** added to the blocklist.", tag), true)
		return
	}
	respond(s, i, fmt.Sprintf("Org tag **%s** removed from the blocklist.", tag), true)
}

func handleRally(ctx context.Context, deps Deps, s *discordgo.Session, i *discordgo.InteractionCreate, settings guildsettings.Settings, sub *discordgo.ApplicationCommandInteractionDataOption) {
	opts := subOptions(sub)

	switch sub.Name {
	case "role":
		role := opts["role"].RoleValue(s, i.GuildID)
		if _, err := deps.Settings.SetRallyRole(ctx, i.GuildID, role.ID); err != nil {
			configFailed(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Rally role set to <@&%s>.", role.ID), true)

	case "channel":
		channel := opts["channel"].ChannelValue(s)
		ok, err := deps.Gateway.IsVoiceChannel(channel.ID)
		if err != nil {
			configFailed(s, i, err)
			return
		}
		if !ok {
			respond(s, i, fmt.Sprintf("<#%s> is not a voice channel.", channel.ID), true)
			return
		}
		if _, err := deps.Settings.SetRallyChannel(ctx, i.GuildID, channel.ID); err != nil {
			configFailed(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Rally channel set to <#%s>.", channel.ID), true)

	case "allow-role":
		role := opts["role"].RoleValue(s, i.GuildID)
		roles := toggle(settings.RallyAllowedRoles, role.ID, removeFlag(opts))
		if _, err := deps.Settings.SetRallyAllowedRoles(ctx, i.GuildID, roles); err != nil {
			configFailed(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Roles allowed to trigger rallies: %s", mentionRoles(roles)), true)

	case "trigger-channel":
		channel := opts["channel"].ChannelValue(s)
		channels := toggle(settings.RallyTriggerChannels, channel.ID, removeFlag(opts))
		if _, err := deps.Settings.SetRallyTriggerChannels(ctx, i.GuildID, channels); err != nil {
			configFailed(s, i, err)
			return
		}
		respond(s, i, fmt.Sprintf("Rally trigger channels: %s", mentionChannels(channels)), true)
	}
}

func configFailed(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	logger.WithError(err).Error("Failed to update guild settings")
	respond(s, i, "Something went wrong, please try again later.", true)
}

func removeFlag(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) bool {
	if opt, ok := opts["remove"]; ok {
		return opt.BoolValue()
	}
	return false
}

func toggle(list []string, id string, remove bool) []string {
	kept := make([]string, 0, len(list)+1)
	for _, existing := range list {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if !remove {
		kept = append(kept, id)
	}
	return kept
}

func configEmbed(settings guildsettings.Settings) *discordgo.MessageEmbed {
	blocklist := "None"
	if len(settings.Blocklist) > 0 {
		blocklist = strings.Join(settings.Blocklist, ", ")
	}

	return &discordgo.MessageEmbed{
		Title: "Server Configuration",
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Verification", Value: onOff(settings.VerificationEnabled), Inline: true},
			{Name: "Timeout", Value: fmt.Sprintf("%d hours", settings.TimeoutHours), Inline: true},
			{Name: "Verified Role", Value: mentionRole(settings.VerifiedRoleID), Inline: true},
			{Name: "Log Channel", Value: mentionChannel(settings.LogChannelID), Inline: true},
			{Name: "Org Blocklist", Value: blocklist, Inline: true},
			{Name: "Rally", Value: onOff(settings.RallyEnabled), Inline: true},
			{Name: "Rally Role", Value: mentionRole(settings.RallyRoleID), Inline: true},
			{Name: "Rally Channel", Value: mentionChannel(settings.RallyChannelID), Inline: true},
			{Name: "Rally Trigger Roles", Value: mentionRoles(settings.RallyAllowedRoles), Inline: true},
			{Name: "Rally Trigger Channels", Value: mentionChannels(settings.RallyTriggerChannels), Inline: true},
		},
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "Enabled"
	}
	return "Disabled"
}

func mentionRole(id string) string {
	if id == "" {
		return "Not set"
	}
	return fmt.Sprintf("<@&%s>", id)
}

func mentionChannel(id string) string {
	if id == "" {
		return "Not set"
	}
	return fmt.Sprintf("<#%s>", id)
}

func mentionRoles(ids []string) string {
	if len(ids) == 0 {
		return "None"
	}
	out := make([]string, len(ids))
	for n, id := range ids {
		out[n] = mentionRole(id)
	}
	return strings.Join(out, ", ")
}

func mentionChannels(ids []string) string {
	if len(ids) == 0 {
		return "None"
	}
	out := make([]string, len(ids))
	for n, id := range ids {
		out[n] = mentionChannel(id)
	}
	return strings.Join(out, ", ")
}
