package handlers

import (
	"context"
	"runtime"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gammazero/workerpool"

	"botfoundation/clients"
	"botfoundation/core/log"
	"botfoundation/middleware"
	"botfoundation/models"
	"botfoundation/services"
)

const argsOptionName = "args"

// SchedulerStarter starts background jobs; only the first call has an effect
type SchedulerStarter interface {
	Start(ctx context.Context) bool
}

type DiscordEventsHandler struct {
	ctx          context.Context
	dispatch     middleware.DispatchFunc
	gateway      clients.Gateway
	catalog      services.CommandCatalog
	scheduler    SchedulerStarter
	pool         *workerpool.WorkerPool
	prefix       string
	syncGlobally bool
}

// NewDiscordEventsHandler creates the handler. Inbound messages are dispatched
// on a pool of workers; with a single worker events are processed one at a time
// in arrival order.
func NewDiscordEventsHandler(
	ctx context.Context,
	workers int,
	prefix string,
	syncGlobally bool,
	dispatch middleware.DispatchFunc,
	gateway clients.Gateway,
	catalog services.CommandCatalog,
	scheduler SchedulerStarter,
) *DiscordEventsHandler {
	if workers < 1 {
		workers = 1
	}

	return &DiscordEventsHandler{
		ctx:          ctx,
		dispatch:     dispatch,
		gateway:      gateway,
		catalog:      catalog,
		scheduler:    scheduler,
		pool:         workerpool.New(workers),
		prefix:       prefix,
		syncGlobally: syncGlobally,
	}
}

// Register attaches the event callbacks to a session
func (h *DiscordEventsHandler) Register(session *discordgo.Session) {
	session.AddHandler(h.handleReadyEvent)
	session.AddHandler(h.handleMessageCreatedEvent)
	session.AddHandler(h.handleInteractionCreatedEvent)
}

// Stop waits for queued events to finish dispatching
func (h *DiscordEventsHandler) Stop() {
	h.pool.StopWait()
}

func (h *DiscordEventsHandler) handleReadyEvent(s *discordgo.Session, r *discordgo.Ready) {
	h.HandleReady(r.User)
}

// HandleReady logs the identity and starts background jobs. Reconnects emit
// Ready again; the scheduler is only started once.
func (h *DiscordEventsHandler) HandleReady(user *discordgo.User) {
	if user != nil {
		log.Info("🤖 Logged in as "+user.Username, "user_id", user.ID)
	}
	log.Info("📋 Runtime information",
		"go_version", runtime.Version(),
		"os", runtime.GOOS+"/"+runtime.GOARCH)

	if h.scheduler.Start(h.ctx) {
		log.Info("✅ Background jobs started")
	} else {
		log.Debug("📋 Background jobs already running, ignoring repeated ready event")
		return
	}

	if !h.syncGlobally {
		return
	}

	commands := h.catalog.Commands()
	if err := h.gateway.SyncCommandCatalog(h.ctx, "", commands); err != nil {
		log.Error("❌ Failed to sync commands globally", "error", err)
		return
	}
	log.Info("✅ Synced commands globally", "count", len(commands))
}

func (h *DiscordEventsHandler) handleMessageCreatedEvent(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(sessionSelfID(s), m)
}

// HandleMessage queues a message for dispatch
func (h *DiscordEventsHandler) HandleMessage(selfID string, m *discordgo.MessageCreate) {
	msg, ok := mapToInboundMessage(selfID, m)
	if !ok {
		return
	}
	h.submit(msg)
}

func (h *DiscordEventsHandler) handleInteractionCreatedEvent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Running `" + i.ApplicationCommandData().Name + "`...",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Warn("⚠️ Failed to acknowledge interaction", "interaction_id", i.ID, "error", err)
	}

	h.HandleInteraction(sessionSelfID(s), i)
}

// HandleInteraction turns an application command into a prefixed message and
// queues it, so slash commands flow through the same pipeline as text commands
func (h *DiscordEventsHandler) HandleInteraction(selfID string, i *discordgo.InteractionCreate) {
	msg, ok := mapInteractionToInboundMessage(selfID, h.prefix, i)
	if !ok {
		return
	}
	h.submit(msg)
}

func (h *DiscordEventsHandler) submit(msg models.InboundMessage) {
	h.pool.Submit(func() {
		outcome, err := h.dispatch(h.ctx, msg)
		if err != nil {
			return
		}
		if outcome.Kind != models.OutcomeIgnored {
			log.Debug("📋 Dispatch finished", "message_id", msg.MessageID, "outcome", outcome.Kind, "command", outcome.Command)
		}
	})
}

func sessionSelfID(s *discordgo.Session) string {
	if s == nil || s.State == nil || s.State.User == nil {
		return ""
	}
	return s.State.User.ID
}

// mapToInboundMessage maps a Discord SDK message event to our domain model
func mapToInboundMessage(selfID string, m *discordgo.MessageCreate) (models.InboundMessage, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return models.InboundMessage{}, false
	}

	return models.InboundMessage{
		MessageID:   m.ID,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		AuthorID:    m.Author.ID,
		AuthorName:  m.Author.Username,
		AuthorIsBot: m.Author.Bot,
		SelfID:      selfID,
		Content:     m.Content,
		CreatedAt:   m.Timestamp,
	}, true
}

// mapInteractionToInboundMessage maps an application command interaction to our domain model
func mapInteractionToInboundMessage(
	selfID string,
	prefix string,
	i *discordgo.InteractionCreate,
) (models.InboundMessage, bool) {
	if i == nil || i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return models.InboundMessage{}, false
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return models.InboundMessage{}, false
	}

	data := i.ApplicationCommandData()
	content := prefix + data.Name
	for _, option := range data.Options {
		if option.Name == argsOptionName && option.Type == discordgo.ApplicationCommandOptionString {
			if args := strings.TrimSpace(option.StringValue()); args != "" {
				content += " " + args
			}
		}
	}

	return models.InboundMessage{
		MessageID:   i.ID,
		ChannelID:   i.ChannelID,
		GuildID:     i.GuildID,
		AuthorID:    user.ID,
		AuthorName:  user.Username,
		AuthorIsBot: user.Bot,
		SelfID:      selfID,
		Content:     content,
	}, true
}
