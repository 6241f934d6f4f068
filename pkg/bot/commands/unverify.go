package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/permissions"
	"github.com/bwmarrin/discordgo"
)

// Unverify revokes a member's verification: the record returns to pending,
// the identity fields are wiped, and the verified role is retracted. The
// member gets a fresh timeout window to verify again.
func Unverify(deps Deps) *Command {
	moderate := int64(discordgo.PermissionModerateMembers)
	return &Command{
		Definition: &discordgo.ApplicationCommand{
			Name:                     "unverify",
			Description:              "Revoke a member's RSI verification",
			DefaultMemberPermissions: &moderate,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "The member to unverify",
					Required:    true,
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
			if !permissions.Authorized(actor, settings, permissions.ModerateMembers) {
				respond(s, i, "You do not have permission to do that.", true)
				return
			}

			opts := options(i.ApplicationCommandData())
			target := opts["member"].UserValue(s)

			_, err = deps.Members.Revoke(ctx, target.ID, i.GuildID)
			if errors.Is(err, membership.ErrNotFound) {
				respond(s, i, fmt.Sprintf("No membership record for <@%s>.", target.ID), true)
				return
			}
			if err != nil {
				logger.WithError(err).Error("Failed to revoke verification")
				respond(s, i, "Something went wrong, please try again later.", true)
				return
			}

			if settings.VerifiedRoleID != "" {
				if err := deps.Gateway.RemoveRole(i.GuildID, target.ID, settings.VerifiedRoleID); err != nil {
					logger.WithError(err).WithFields(map[string]interface{}{
						"member_id": target.ID,
						"guild_id":  i.GuildID,
					}).Warn("Failed to retract verified role")
				}
			}

			deps.Events.Publish(ctx, events.TypeMemberRevoked, i.GuildID, target.ID, map[string]interface{}{
				"revoked_by": i.Member.User.ID,
			})

			logger.WithFields(map[string]interface{}{
				"member_id":  target.ID,
				"guild_id":   i.GuildID,
				"revoked_by": i.Member.User.ID,
			}).Info("Verification revoked")

			respond(s, i, fmt.Sprintf("<@%s> is no longer verified. They must verify again within **%d hours**.",
				target.ID, settings.TimeoutHours), true)
		},
	}
}
