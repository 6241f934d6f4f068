package discord

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ErrMemberNotFound marks gateway operations against a member who is no
// longer present. The timeout sweep treats this as equivalent to removal.
var ErrMemberNotFound = errors.New("member not found")

// ErrNotVoiceChannel marks a rally target that is not a voice channel.
var ErrNotVoiceChannel = errors.New("target is not a voice channel")

// Client wraps a discordgo session behind the narrow operations the rest of
// the system consumes. Callers hold interfaces over this type so tests can
// substitute fakes.
type Client struct {
	session *discordgo.Session
}

func New(token string) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildVoiceStates

	return &Client{session: session}, nil
}

// Session exposes the underlying session for event handler registration and
// interaction responses.
func (c *Client) Session() *discordgo.Session {
	return c.session
}

func (c *Client) Open() error {
	return c.session.Open()
}

func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) GuildName(guildID string) (string, error) {
	if guild, err := c.session.State.Guild(guildID); err == nil {
		return guild.Name, nil
	}
	guild, err := c.session.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("fetching guild %s: %w", guildID, err)
	}
	return guild.Name, nil
}

func (c *Client) KickMember(guildID, userID, reason string) error {
	err := c.session.GuildMemberDeleteWithReason(guildID, userID, reason)
	if isUnknownMember(err) {
		return ErrMemberNotFound
	}
	return err
}

func (c *Client) SendDM(userID, content string) error {
	channel, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	_, err = c.session.ChannelMessageSend(channel.ID, content)
	return err
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content)
	return err
}

func (c *Client) AddRole(guildID, userID, roleID string) error {
	err := c.session.GuildMemberRoleAdd(guildID, userID, roleID)
	if isUnknownMember(err) {
		return ErrMemberNotFound
	}
	return err
}

func (c *Client) RemoveRole(guildID, userID, roleID string) error {
	err := c.session.GuildMemberRoleRemove(guildID, userID, roleID)
	if isUnknownMember(err) {
		return ErrMemberNotFound
	}
	return err
}

// RallyCandidates returns members holding roleID who are connected to a voice
// channel other than excludeChannelID.
func (c *Client) RallyCandidates(guildID, roleID, excludeChannelID string) ([]string, error) {
	guild, err := c.session.State.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("resolving guild %s: %w", guildID, err)
	}

	var candidates []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == "" || vs.ChannelID == excludeChannelID {
			continue
		}
		member, err := c.member(guildID, vs.UserID)
		if err != nil {
			continue
		}
		for _, r := range member.Roles {
			if r == roleID {
				candidates = append(candidates, vs.UserID)
				break
			}
		}
	}
	return candidates, nil
}

func (c *Client) MoveToVoice(guildID, userID, channelID string) error {
	err := c.session.GuildMemberMove(guildID, userID, &channelID)
	if isUnknownMember(err) {
		return ErrMemberNotFound
	}
	return err
}

// IsVoiceChannel verifies the rally target before any moves are attempted.
func (c *Client) IsVoiceChannel(channelID string) (bool, error) {
	channel, err := c.session.State.Channel(channelID)
	if err != nil {
		channel, err = c.session.Channel(channelID)
		if err != nil {
			return false, err
		}
	}
	return channel.Type == discordgo.ChannelTypeGuildVoice, nil
}

func (c *Client) member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := c.session.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	member, err := c.session.GuildMember(guildID, userID)
	if isUnknownMember(err) {
		return nil, ErrMemberNotFound
	}
	return member, err
}

func isUnknownMember(err error) bool {
	if err == nil {
		return false
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
			return true
		}
	}
	return false
}
