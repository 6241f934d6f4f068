package commands

import (
	"context"
	"fmt"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/bwmarrin/discordgo"
)

// Stats summarizes how many members sit in each verification status.
func Stats(deps Deps) *Command {
	moderate := int64(discordgo.PermissionModerateMembers)
	return &Command{
		Definition: &discordgo.ApplicationCommand{
			Name:                     "stats",
			Description:              "Show verification statistics for this server",
			DefaultMemberPermissions: &moderate,
		},
		Handle: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			counts, err := deps.Members.StatusCounts(context.Background(), i.GuildID)
			if err != nil {
				logger.WithError(err).Error("Failed to count membership statuses")
				respond(s, i, "Something went wrong, please try again later.", true)
				return
			}

			var total int64
			for _, n := range counts {
				total += n
			}

			respondEmbed(s, i, &discordgo.MessageEmbed{
				Title: "Verification Statistics",
				Color: 0x3498db,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "✅ Verified", Value: fmt.Sprintf("%d", counts[membership.StatusVerified]), Inline: true},
					{Name: "⏳ Pending", Value: fmt.Sprintf("%d", counts[membership.StatusPending]), Inline: true},
					{Name: "⚠️ Flagged", Value: fmt.Sprintf("%d", counts[membership.StatusFlagged]), Inline: true},
					{Name: "🚫 Kicked", Value: fmt.Sprintf("%d", counts[membership.StatusKicked]), Inline: true},
					{Name: "Total", Value: fmt.Sprintf("%d", total), Inline: true},
				},
			})
		},
	}
}
