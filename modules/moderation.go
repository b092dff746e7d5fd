package modules

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"botfoundation/appctx"
	"botfoundation/core"
	"botfoundation/models"
	"botfoundation/services/checks"
	"botfoundation/utils"
)

const defaultWarnReason = "Not specified"

type ModerationModule struct {
	app *appctx.App
}

func NewModerationModule(app *appctx.App) *ModerationModule {
	return &ModerationModule{app: app}
}

func (m *ModerationModule) Name() string { return "moderation" }

func (m *ModerationModule) Commands() ([]*models.CommandDefinition, error) {
	predicates := []models.Predicate{
		checks.GuildOnly(),
		checks.NotBlacklisted(m.app.Moderation),
		checks.HasPermissions(m.app.Gateway, models.PermissionModerateMembers),
		checks.BotHasPermissions(m.app.Gateway, m.app.Gateway.SelfID, models.PermissionSendMessages, models.PermissionEmbedLinks),
	}
	cooldown := models.CooldownPolicy{Window: 5 * time.Second, MaxInvocations: 1}

	return []*models.CommandDefinition{
		{
			Name:        "warn",
			Description: "Warns a user in the server.",
			Usage:       "<user> [reason]",
			Predicates:  predicates,
			Cooldown:    cooldown,
			Handler:     m.warn,
		},
		{
			Name:        "warnings",
			Aliases:     []string{"warns"},
			Description: "Shows the warnings of a user in the server.",
			Usage:       "<user>",
			Predicates:  predicates,
			Cooldown:    cooldown,
			Handler:     m.warnings,
		},
		{
			Name:        "unwarn",
			Description: "Removes a warning from a user in the server.",
			Usage:       "<warn id>",
			Predicates:  predicates,
			Cooldown:    cooldown,
			Handler:     m.unwarn,
		},
	}, nil
}

func (m *ModerationModule) warn(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	userID, ok, err := userArgument(ctx, inv, reply, 0)
	if !ok {
		return err
	}

	reason := defaultWarnReason
	if len(inv.Args) > 1 {
		reason = strings.TrimSpace(strings.TrimPrefix(inv.RawArgs, inv.Args[0]))
	}
	if utf8.RuneCountInString(reason) > models.MaxWarnReasonLength {
		return reply.Reply(ctx, models.ErrorResponse("",
			fmt.Sprintf("The reason cannot be longer than %d characters.", models.MaxWarnReasonLength)))
	}

	warn, total, err := m.app.Moderation.WarnUser(ctx, userID, inv.GuildID, inv.UserID, reason)
	if err != nil {
		return err
	}

	return reply.Reply(ctx, models.Response{Embed: &models.Embed{
		Description: fmt.Sprintf("**<@%s>** was warned by **<@%s>**!\nTotal warns for this user: %d", userID, inv.UserID, total),
		Color:       models.ColorInfo,
		Fields: []models.EmbedField{
			{Name: "Reason", Value: reason},
			{Name: "Warn ID", Value: fmt.Sprintf("#%d", warn.ID), Inline: true},
		},
	}})
}

func (m *ModerationModule) warnings(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	userID, ok, err := userArgument(ctx, inv, reply, 0)
	if !ok {
		return err
	}

	warns, err := m.app.Moderation.ListWarns(ctx, userID, inv.GuildID)
	if err != nil {
		return err
	}

	embed := &models.Embed{
		Title: "Warnings",
		Color: models.ColorInfo,
	}
	if len(warns) == 0 {
		embed.Description = fmt.Sprintf("<@%s> has no warnings.", userID)
		return reply.Reply(ctx, models.Response{Embed: embed})
	}

	lines := make([]string, 0, len(warns))
	for _, warn := range warns {
		lines = append(lines, fmt.Sprintf("• Warned by <@%s>: **%s** (<t:%d>) - Warn ID #%d",
			warn.ModeratorID, warn.Reason, warn.CreatedAt.Unix(), warn.ID))
	}
	embed.Description = fmt.Sprintf("<@%s> has %d warning(s):\n%s", userID, len(warns), strings.Join(lines, "\n"))
	return reply.Reply(ctx, models.Response{Embed: embed})
}

func (m *ModerationModule) unwarn(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	if len(inv.Args) == 0 {
		return &core.MissingArgumentError{Param: "warn_id"}
	}

	warnID, err := strconv.ParseInt(strings.TrimPrefix(inv.Args[0], "#"), 10, 64)
	if err != nil || warnID <= 0 {
		return reply.Reply(ctx, models.ErrorResponse("", fmt.Sprintf("`%s` is not a valid warn id.", inv.Args[0])))
	}

	if err := m.app.Moderation.RemoveWarn(ctx, warnID, inv.GuildID); err != nil {
		if core.IsNotFoundError(err) {
			return reply.Reply(ctx, models.ErrorResponse("", fmt.Sprintf("There is no warning #%d in this server.", warnID)))
		}
		return err
	}

	return reply.Reply(ctx, models.Response{Embed: &models.Embed{
		Description: fmt.Sprintf("Warning #%d has been removed.", warnID),
		Color:       models.ColorInfo,
	}})
}

// userArgument parses the argument at index as a user. When it is not a valid
// user the caller gets ok=false and the error of replying to the invoker.
func userArgument(ctx context.Context, inv models.Invocation, reply models.Replier, index int) (string, bool, error) {
	if len(inv.Args) <= index {
		return "", false, &core.MissingArgumentError{Param: "user"}
	}
	userID, ok := utils.ParseUserID(inv.Args[index])
	if !ok {
		return "", false, reply.Reply(ctx, models.ErrorResponse("", fmt.Sprintf("`%s` is not a valid user.", inv.Args[index])))
	}
	return userID, true, nil
}
