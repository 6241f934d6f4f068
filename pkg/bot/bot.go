package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/bot/commands"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/common/logger"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/discord"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/guildsettings"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/membership"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/messages"
	"github.com/RagTag-Mercs/ragtag-discord-bot/pkg/rally"
	"github.com/bwmarrin/discordgo"
)

// Bot ties the gateway session to the membership services: it registers the
// slash commands, welcomes joining members into the verification flow, and
// listens for rally triggers.
type Bot struct {
	client   *discord.Client
	members  *membership.Service
	settings *guildsettings.Service
	rally    *rally.Dispatcher
	catalog  *messages.Catalog
	baseURL  string

	handlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	defs     []*discordgo.ApplicationCommand
}

func New(client *discord.Client, members *membership.Service, settings *guildsettings.Service, dispatcher *rally.Dispatcher, catalog *messages.Catalog, deps commands.Deps) *Bot {
	b := &Bot{
		client:   client,
		members:  members,
		settings: settings,
		rally:    dispatcher,
		catalog:  catalog,
		baseURL:  deps.BaseURL,
		handlers: make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)),
	}

	for _, command := range commands.All(deps) {
		b.defs = append(b.defs, command.Definition)
		b.handlers[command.Definition.Name] = command.Handle
	}

	session := client.Session()
	session.AddHandler(b.onReady)
	session.AddHandler(b.onGuildMemberAdd)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)

	return b
}

// Start opens the gateway connection. Command registration happens on ready.
func (b *Bot) Start() error {
	if err := b.client.Open(); err != nil {
		return fmt.Errorf("opening gateway connection: %w", err)
	}
	return nil
}

func (b *Bot) Stop() error {
	return b.client.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	logger.WithFields(map[string]interface{}{
		"username": r.User.Username,
		"guilds":   len(r.Guilds),
	}).Info("Gateway connection ready")

	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", b.defs); err != nil {
		logger.WithError(err).Error("Failed to register slash commands")
	}
}

// onGuildMemberAdd anchors the timeout clock before the welcome DM goes out,
// so a member the sweep later inspects always has a join timestamp.
func (b *Bot) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User.Bot {
		return
	}
	ctx := context.Background()

	settings, err := b.settings.Get(ctx, m.GuildID)
	if err != nil {
		logger.WithError(err).Error("Failed to load guild settings on member join")
		return
	}
	if !settings.VerificationEnabled {
		return
	}

	if _, err := b.members.RecordJoin(ctx, m.User.ID, m.GuildID); err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"member_id": m.User.ID,
			"guild_id":  m.GuildID,
		}).Error("Failed to record member join")
		return
	}

	guildName, err := b.client.GuildName(m.GuildID)
	if err != nil {
		logger.WithError(err).Warn("Failed to resolve guild name for welcome")
		guildName = "the server"
	}

	verifyURL := fmt.Sprintf("%s/auth/start?guild=%s&user=%s", b.baseURL, m.GuildID, m.User.ID)
	if err := b.client.SendDM(m.User.ID, b.catalog.WelcomeText(guildName, settings.TimeoutHours, verifyURL)); err != nil {
		// Closed DMs are common; the member can still run /verify.
		logger.WithError(err).WithFields(map[string]interface{}{
			"member_id": m.User.ID,
			"guild_id":  m.GuildID,
		}).Debug("Failed to send welcome DM")
	}

	logger.WithFields(map[string]interface{}{
		"member_id": m.User.ID,
		"guild_id":  m.GuildID,
	}).Info("Member joined, verification window started")
}

// onMessageCreate watches for rally triggers: a message mentioning the rally
// role in a configured trigger channel.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" || m.Member == nil {
		return
	}
	ctx := context.Background()

	settings, err := b.settings.Get(ctx, m.GuildID)
	if err != nil {
		logger.WithError(err).Error("Failed to load guild settings on message")
		return
	}
	if settings.RallyRoleID == "" || !mentionsRole(m.MentionRoles, settings.RallyRoleID) {
		return
	}

	perms, err := s.State.MessagePermissions(m.Message)
	if err != nil {
		logger.WithError(err).Warn("Failed to resolve message permissions")
		return
	}

	report, err := b.rally.Dispatch(ctx, rally.Trigger{
		GuildID:         m.GuildID,
		ActorID:         m.Author.ID,
		ActorRoleIDs:    m.Member.Roles,
		ActorPermission: perms,
		SourceChannelID: m.ChannelID,
	})
	switch {
	case errors.Is(err, rally.ErrUnauthorized), errors.Is(err, rally.ErrDisabled), errors.Is(err, rally.ErrNotConfigured):
		// Unauthorized or inactive triggers get no reply at all.
		return
	case err != nil:
		logger.WithError(err).Error("Rally dispatch failed")
		return
	}

	reply := b.catalog.RallyMovedText(report.Moved, report.Failed, report.TargetChannelID)
	if report.Nothing() {
		reply = b.catalog.RallyEmptyText(report.RallyRoleID)
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, reply, m.Reference()); err != nil {
		logger.WithError(err).Warn("Failed to send rally report")
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.Member == nil {
		return
	}

	name := i.ApplicationCommandData().Name
	handle, ok := b.handlers[name]
	if !ok {
		logger.WithFields(map[string]interface{}{"command": name}).Warn("Unknown command interaction")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{
				"command": name,
				"panic":   r,
			}).Error("Command handler panicked")
		}
	}()
	handle(s, i)
}

func mentionsRole(mentioned []string, roleID string) bool {
	for _, id := range mentioned {
		if id == roleID {
			return true
		}
	}
	return false
}
