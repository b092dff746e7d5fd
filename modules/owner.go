package modules

import (
	"context"
	"fmt"
	"strings"

	"botfoundation/appctx"
	"botfoundation/core"
	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/services/checks"
)

type OwnerModule struct {
	app *appctx.App
}

func NewOwnerModule(app *appctx.App) *OwnerModule {
	return &OwnerModule{app: app}
}

func (m *OwnerModule) Name() string { return "owner" }

func (m *OwnerModule) Commands() ([]*models.CommandDefinition, error) {
	if len(m.app.Config.OwnerIDs) == 0 {
		log.Warn("⚠️ No owner ids configured, owner commands will deny everyone")
	}

	predicates := []models.Predicate{
		checks.IsOwner(m.app.Config.OwnerIDs),
		checks.NotBlacklisted(m.app.Moderation),
	}

	return []*models.CommandDefinition{
		{
			Name:        "blacklist",
			Description: "Add, remove or list users that cannot use the bot.",
			Usage:       "<add|remove|list> [user]",
			Predicates:  predicates,
			Handler:     m.blacklist,
		},
		{
			Name:        "sync",
			Description: "Synchronize the slash commands.",
			Usage:       "[global|guild]",
			Predicates:  predicates,
			Handler:     m.sync,
		},
	}, nil
}

func (m *OwnerModule) blacklist(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	if len(inv.Args) == 0 {
		return reply.Reply(ctx, models.ErrorResponse("",
			"You need to specify a subcommand.\n\n**Subcommands:**\n`add` - Add a user to the blacklist.\n`remove` - Remove a user from the blacklist.\n`list` - Show the blacklisted users."))
	}

	switch strings.ToLower(inv.Args[0]) {
	case "add":
		return m.blacklistAdd(ctx, inv, reply)
	case "remove":
		return m.blacklistRemove(ctx, inv, reply)
	case "list", "show":
		return m.blacklistList(ctx, reply)
	default:
		return reply.Reply(ctx, models.ErrorResponse("", fmt.Sprintf("Unknown subcommand `%s`.", inv.Args[0])))
	}
}

func (m *OwnerModule) blacklistAdd(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	userID, ok, err := userArgument(ctx, inv, reply, 1)
	if !ok {
		return err
	}

	added, err := m.app.Moderation.AddBlacklistEntry(ctx, userID)
	if err != nil {
		return err
	}
	if !added {
		return reply.Reply(ctx, models.ErrorResponse("", fmt.Sprintf("<@%s> is already in the blacklist.", userID)))
	}

	entries, err := m.app.Moderation.ListBlacklist(ctx)
	if err != nil {
		return err
	}
	return reply.Reply(ctx, models.Response{Embed: &models.Embed{
		Description: fmt.Sprintf("<@%s> has been successfully added to the blacklist.", userID),
		Color:       models.ColorInfo,
		Fields:      []models.EmbedField{{Name: "Blacklisted users", Value: fmt.Sprintf("%d", len(entries))}},
	}})
}

func (m *OwnerModule) blacklistRemove(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	userID, ok, err := userArgument(ctx, inv, reply, 1)
	if !ok {
		return err
	}

	if err := m.app.Moderation.RemoveBlacklistEntry(ctx, userID); err != nil {
		if core.IsNotFoundError(err) {
			return reply.Reply(ctx, models.ErrorResponse("", fmt.Sprintf("<@%s> is not in the blacklist.", userID)))
		}
		return err
	}

	return reply.Reply(ctx, models.Response{Embed: &models.Embed{
		Description: fmt.Sprintf("<@%s> has been successfully removed from the blacklist.", userID),
		Color:       models.ColorInfo,
	}})
}

func (m *OwnerModule) blacklistList(ctx context.Context, reply models.Replier) error {
	entries, err := m.app.Moderation.ListBlacklist(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return reply.Reply(ctx, models.Response{Embed: &models.Embed{
			Description: "There are currently no blacklisted users.",
			Color:       models.ColorInfo,
		}})
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("• <@%s> (%s) - Blacklisted <t:%d>", entry.UserID, entry.UserID, entry.CreatedAt.Unix()))
	}
	return reply.Reply(ctx, models.Response{Embed: &models.Embed{
		Title:       "Blacklisted users",
		Description: strings.Join(lines, "\n"),
		Color:       models.ColorInfo,
	}})
}

func (m *OwnerModule) sync(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	scope := "guild"
	if len(inv.Args) > 0 {
		scope = strings.ToLower(inv.Args[0])
	} else if !inv.InGuild() {
		scope = "global"
	}

	var guildID string
	switch scope {
	case "global":
	case "guild":
		if !inv.InGuild() {
			return reply.Reply(ctx, models.ErrorResponse("", "Guild synchronization is only available inside a server."))
		}
		guildID = inv.GuildID
	default:
		return reply.Reply(ctx, models.ErrorResponse("", "The scope must be `global` or `guild`."))
	}

	if err := m.app.Gateway.SyncCommandCatalog(ctx, guildID, m.app.Commands.Commands()); err != nil {
		return core.NewHandlerError("sync commands", err)
	}

	description := "Slash commands have been globally synchronized."
	if guildID != "" {
		description = "Slash commands have been synchronized in this guild."
	}
	return reply.Reply(ctx, models.Response{Embed: &models.Embed{Description: description, Color: models.ColorInfo}})
}
