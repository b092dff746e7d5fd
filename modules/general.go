package modules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"botfoundation/appctx"
	"botfoundation/models"
	"botfoundation/services/checks"
	"botfoundation/utils"
)

// LatencyReporter is implemented by gateways that track heartbeat latency
type LatencyReporter interface {
	Latency() time.Duration
}

type GeneralModule struct {
	app *appctx.App
	now func() time.Time
}

func NewGeneralModule(app *appctx.App) *GeneralModule {
	return &GeneralModule{app: app, now: time.Now}
}

func (m *GeneralModule) Name() string { return "general" }

func (m *GeneralModule) Commands() ([]*models.CommandDefinition, error) {
	notBlacklisted := checks.NotBlacklisted(m.app.Moderation)

	return []*models.CommandDefinition{
		{
			Name:        "ping",
			Description: "Check if the bot is alive.",
			Predicates:  []models.Predicate{notBlacklisted},
			Handler:     m.ping,
		},
		{
			Name:        "help",
			Aliases:     []string{"commands", "h"},
			Description: "List all commands the bot has loaded.",
			Usage:       "[command]",
			Predicates:  []models.Predicate{notBlacklisted},
			Handler:     m.help,
		},
	}, nil
}

func (m *GeneralModule) ping(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	latency := m.now().Sub(inv.CreatedAt)
	if reporter, ok := m.app.Gateway.(LatencyReporter); ok && reporter.Latency() > 0 {
		latency = reporter.Latency()
	}

	return reply.Reply(ctx, models.Response{Embed: &models.Embed{
		Title:       "🏓 Pong!",
		Description: fmt.Sprintf("The bot latency is %dms.", latency.Milliseconds()),
		Color:       models.ColorInfo,
	}})
}

func (m *GeneralModule) help(ctx context.Context, inv models.Invocation, reply models.Replier) error {
	prefix := m.app.Config.Prefix

	if len(inv.Args) > 0 {
		def, ok := m.app.Commands.Resolve(inv.Args[0]).Get()
		if !ok {
			return reply.Reply(ctx, models.ErrorResponse("", fmt.Sprintf("Unknown command `%s`.", inv.Args[0])))
		}
		return reply.Reply(ctx, models.Response{Embed: commandDetail(prefix, def)})
	}

	embed := &models.Embed{
		Title:       "Help",
		Description: "List of available commands:",
		Color:       models.ColorInfo,
	}

	var order []string
	byModule := make(map[string][]string)
	for _, def := range m.app.Commands.Commands() {
		if _, seen := byModule[def.Module]; !seen {
			order = append(order, def.Module)
		}
		byModule[def.Module] = append(byModule[def.Module], fmt.Sprintf("%s%s - %s", prefix, def.Name, def.Description))
	}
	for _, module := range order {
		embed.Fields = append(embed.Fields, models.EmbedField{
			Name:  utils.Capitalize(module),
			Value: "```" + strings.Join(byModule[module], "\n") + "```",
		})
	}

	return reply.Reply(ctx, models.Response{Embed: embed})
}

func commandDetail(prefix string, def *models.CommandDefinition) *models.Embed {
	embed := &models.Embed{
		Title:       prefix + def.Name,
		Description: def.Description,
		Color:       models.ColorInfo,
	}

	usage := prefix + def.Name
	if def.Usage != "" {
		usage += " " + def.Usage
	}
	embed.Fields = append(embed.Fields, models.EmbedField{Name: "Usage", Value: "`" + usage + "`"})

	if len(def.Aliases) > 0 {
		embed.Fields = append(embed.Fields, models.EmbedField{Name: "Aliases", Value: strings.Join(def.Aliases, ", ")})
	}
	if def.Cooldown.Enabled() {
		embed.Fields = append(embed.Fields, models.EmbedField{
			Name:  "Cooldown",
			Value: fmt.Sprintf("%d per %s", def.Cooldown.MaxInvocations, def.Cooldown.Window),
		})
	}
	return embed
}
