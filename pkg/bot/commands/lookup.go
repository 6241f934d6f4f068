package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/messages"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rsi"
	"github.com/bwmarrin/discordgo"
)

func statusLabel(status membership.Status) string {
	switch status {
	case membership.StatusPending:
		return "⏳ Pending"
	case membership.StatusVerified:
		return "✅ Verified"
	case membership.StatusKicked:
		return "🚫 Kicked"
	case membership.StatusFlagged:
		return "⚠️ Flagged"
	default:
		return string(status)
	}
}

// Lookup renders a member's verification record, addressed either by Discord
// member or by RSI handle.
func Lookup(deps Deps) *Command {
	moderate := int64(discordgo.PermissionModerateMembers)
	return &Command{
		Definition: &discordgo.ApplicationCommand{
			Name:                     "lookup",
			Description:              "Look up a member's verification record",
			DefaultMemberPermissions: &moderate,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "discord",
					Description: "Look up by Discord member",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "member",
							Description: "The member to look up",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "rsi",
					Description: "Look up by RSI handle",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "handle",
							Description: "The RSI handle to look up",
							Required:    true,
						},
					},
				},
			},
		},
		Handle: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			ctx := context.Background()
			data := i.ApplicationCommandData()
			sub := data.Options[0]

			var record membership.Record
			var err error
			switch sub.Name {
			case "discord":
				target := subOptions(sub)["member"].UserValue(s)
				record, err = deps.Members.Lookup(ctx, target.ID, i.GuildID)
			case "rsi":
				handle := subOptions(sub)["handle"].StringValue()
				record, err = deps.Members.LookupByHandle(ctx, i.GuildID, handle)
			}

			if errors.Is(err, membership.ErrNotFound) {
				respond(s, i, "No matching membership record found.", true)
				return
			}
			if err != nil {
				logger.WithError(err).Error("Failed to look up membership record")
				respond(s, i, "Something went wrong, please try again later.", true)
				return
			}

			respondEmbed(s, i, lookupEmbed(record))
		},
	}
}

func lookupEmbed(record membership.Record) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: fmt.Sprintf("<@%s>", record.DiscordID), Inline: true},
		{Name: "Status", Value: statusLabel(record.Status), Inline: true},
		{Name: "Joined", Value: record.JoinedAt.Format("2006-01-02 15:04 UTC"), Inline: true},
	}

	if record.RSIHandle != "" {
		fields = append(fields,
			&discordgo.MessageEmbedField{
				Name:   "RSI Handle",
				Value:  fmt.Sprintf("[%s](%s)", record.RSIHandle, rsi.CitizenURL(record.RSIHandle)),
				Inline: true,
			},
			&discordgo.MessageEmbedField{Name: "Citizen Record", Value: orDash(record.CitizenRecord), Inline: true},
			&discordgo.MessageEmbedField{Name: "Orgs", Value: messages.OrgList(record.Orgs)},
		)
	}
	if record.VerifiedAt != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Verified",
			Value:  record.VerifiedAt.Format("2006-01-02 15:04 UTC"),
			Inline: true,
		})
	}
	if record.KickedAt != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Kicked",
			Value:  record.KickedAt.Format("2006-01-02 15:04 UTC"),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:  "Membership Record",
		Color:  embedColor(record.Status),
		Fields: fields,
	}
}

func embedColor(status membership.Status) int {
	switch status {
	case membership.StatusVerified:
		return 0x2ecc71
	case membership.StatusFlagged:
		return 0xf39c12
	case membership.StatusKicked:
		return 0xe74c3c
	default:
		return 0x95a5a6
	}
}

func orDash(value string) string {
	if value == "" {
		return "—"
	}
	return value
}
