package discord

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/utils"
)

const (
	maxMessageLength     = 2000
	maxDescriptionLength = 100
	argsOptionName       = "args"

	// Embed limits enforced by the Discord API
	maxEmbedTitleLength       = 256
	maxEmbedDescriptionLength = 4096
	maxEmbedFields            = 25
	maxEmbedFieldNameLength   = 256
	maxEmbedFieldValueLength  = 1024
)

// Gateway implements clients.Gateway on top of a discordgo session
type Gateway struct {
	session *discordgo.Session
}

// NewGateway creates a session for the bot token. The websocket is not opened
// until Open is called.
func NewGateway(botToken string, httpClient *http.Client) (*Gateway, error) {
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	if httpClient != nil {
		session.Client = httpClient
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	return &Gateway{session: session}, nil
}

// NewGatewayFromSession wraps an existing session
func NewGatewayFromSession(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

// Session exposes the underlying session so event handlers can be attached
func (g *Gateway) Session() *discordgo.Session {
	return g.session
}

func (g *Gateway) Open() error {
	log.Info("📋 Opening Discord gateway connection")
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	log.Info("✅ Discord gateway connection opened")
	return nil
}

func (g *Gateway) Close() error {
	log.Info("📋 Closing Discord gateway connection")
	return g.session.Close()
}

func (g *Gateway) SelfID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

// Latency is the duration between the last heartbeat and its acknowledgement
func (g *Gateway) Latency() time.Duration {
	return g.session.HeartbeatLatency()
}

func toMessageSend(response models.Response) *discordgo.MessageSend {
	msg := &discordgo.MessageSend{
		Content: utils.Truncate(response.Content, maxMessageLength),
	}

	if response.Embed != nil {
		embed := &discordgo.MessageEmbed{
			Title:       utils.Truncate(response.Embed.Title, maxEmbedTitleLength),
			Description: utils.Truncate(response.Embed.Description, maxEmbedDescriptionLength),
			Color:       response.Embed.Color,
		}
		for i, field := range response.Embed.Fields {
			if i == maxEmbedFields {
				log.Warn("⚠️ Dropping embed fields over the limit", "fields", len(response.Embed.Fields))
				break
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   utils.Truncate(field.Name, maxEmbedFieldNameLength),
				Value:  utils.Truncate(field.Value, maxEmbedFieldValueLength),
				Inline: field.Inline,
			})
		}
		msg.Embeds = []*discordgo.MessageEmbed{embed}
	}

	return msg
}

func (g *Gateway) SendMessage(ctx context.Context, channelID string, response models.Response) error {
	if channelID == "" {
		return fmt.Errorf("channel ID cannot be empty")
	}

	_, err := g.session.ChannelMessageSendComplex(channelID, toMessageSend(response), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

func (g *Gateway) SetPresence(ctx context.Context, presence models.Presence) error {
	if err := g.session.UpdateGameStatus(0, presence.Activity); err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	return nil
}

// toApplicationCommands maps definitions to slash commands. Aliases are not
// published; every command takes one optional free-form argument string.
func toApplicationCommands(defs []*models.CommandDefinition) []*discordgo.ApplicationCommand {
	commands := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, def := range defs {
		description := def.Description
		if description == "" {
			description = "No description provided."
		}

		cmd := &discordgo.ApplicationCommand{
			Name:        strings.ToLower(def.Name),
			Description: utils.Truncate(description, maxDescriptionLength),
		}
		if def.Usage != "" {
			cmd.Options = []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        argsOptionName,
					Description: utils.Truncate(def.Usage, maxDescriptionLength),
					Required:    false,
				},
			}
		}
		commands = append(commands, cmd)
	}
	return commands
}

func (g *Gateway) SyncCommandCatalog(ctx context.Context, guildID string, defs []*models.CommandDefinition) error {
	appID := g.SelfID()
	if appID == "" {
		return fmt.Errorf("cannot sync commands before the session is ready")
	}

	scope := "globally"
	if guildID != "" {
		scope = "to guild " + guildID
	}
	log.Info("📋 Starting to sync command catalog", "scope", scope, "commands", len(defs))

	created, err := g.session.ApplicationCommandBulkOverwrite(appID, guildID, toApplicationCommands(defs), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to sync command catalog %s: %w", scope, err)
	}

	log.Info("📋 Completed successfully - synced command catalog", "scope", scope, "commands", len(created))
	return nil
}

func (g *Gateway) MemberPermissions(ctx context.Context, guildID, channelID, userID string) (int64, error) {
	perms, err := g.session.State.UserChannelPermissions(userID, channelID)
	if err == nil {
		return perms, nil
	}

	log.Debug("📋 Permissions not cached, fetching from API", "guild_id", guildID, "channel_id", channelID, "user_id", userID)
	perms, err = g.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve permissions of %s in channel %s: %w", userID, channelID, err)
	}
	return perms, nil
}
