package commands

import (
	"context"
	"fmt"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/bwmarrin/discordgo"
)

// Verify hands the member their personal verification link. Already-verified
// members get told who they are linked as instead.
func Verify(deps Deps) *Command {
	return &Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "verify",
			Description: "Link your RSI account to verify your membership",
		},
		Handle: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			ctx := context.Background()
			userID := i.Member.User.ID

			record, err := deps.Members.EnsureRecord(ctx, userID, i.GuildID)
			if err != nil {
				logger.WithError(err).Error("Failed to ensure membership record")
				respond(s, i, "Something went wrong, please try again later.", true)
				return
			}

			if record.Status == membership.StatusVerified {
				respond(s, i, fmt.Sprintf("You are already verified as **%s**.", record.RSIHandle), true)
				return
			}

			url := fmt.Sprintf("%s/auth/start?guild=%s&user=%s", deps.BaseURL, i.GuildID, userID)
			respond(s, i, fmt.Sprintf("Click to link your RSI account:\n%s", url), true)
		},
	}
}
