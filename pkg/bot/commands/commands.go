package commands

import (
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/events"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/messages"
	"github.com/bwmarrin/discordgo"
)

// Gateway covers the platform operations command handlers need beyond the
// interaction response itself.
type Gateway interface {
	RemoveRole(guildID, userID, roleID string) error
	IsVoiceChannel(channelID string) (bool, error)
}

// Deps bundles the services every command closes over.
type Deps struct {
	Members  *membership.Service
	Settings *guildsettings.Service
	Gateway  Gateway
	Catalog  *messages.Catalog
	Events   *events.Publisher
	// BaseURL is the public origin of the verification web surface.
	BaseURL string
}

// Command pairs a slash-command definition with its handler.
type Command struct {
	Definition *discordgo.ApplicationCommand
	Handle     func(s *discordgo.Session, i *discordgo.InteractionCreate)
}

// All returns every registered command.
func All(deps Deps) []*Command {
	return []*Command{
		Verify(deps),
		Unverify(deps),
		Lookup(deps),
		Stats(deps),
		Config(deps),
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
	if err != nil {
		logger.WithError(err).Error("Failed to respond to interaction")
	}
}

func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.WithError(err).Error("Failed to respond to interaction")
	}
}

// options flattens an interaction's options by name.
func options(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		out[opt.Name] = opt
	}
	return out
}

func subOptions(sub *discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, opt := range sub.Options {
		out[opt.Name] = opt
	}
	return out
}
