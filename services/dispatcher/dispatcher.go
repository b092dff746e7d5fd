package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"botfoundation/appctx"
	"botfoundation/clients"
	"botfoundation/core"
	"botfoundation/models"
	"botfoundation/services/checks"
	"botfoundation/services/cooldown"
	"botfoundation/utils"
)

const component = "dispatcher"

// Responder handles every failed dispatch: it answers the user, writes the
// terminal audit record, and returns the cause of failures it cannot classify
type Responder interface {
	Respond(ctx context.Context, inv models.Invocation, outcome models.DispatchOutcome) error
}

// Dispatcher routes inbound messages through resolution, checks and execution
type Dispatcher struct {
	app       *appctx.App
	cooldowns *cooldown.Tracker
	responder Responder
	now       func() time.Time
}

func NewDispatcher(app *appctx.App, cooldowns *cooldown.Tracker, responder Responder) *Dispatcher {
	return &Dispatcher{
		app:       app,
		cooldowns: cooldowns,
		responder: responder,
		now:       time.Now,
	}
}

// WithClock overrides the time source used for invocation timestamps
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// channelReplier answers in the channel the invocation came from
type channelReplier struct {
	sender    clients.MessageSender
	channelID string
}

func (r channelReplier) Reply(ctx context.Context, response models.Response) error {
	return r.sender.SendMessage(ctx, r.channelID, response)
}

// shouldIgnore reports messages that never enter the pipeline
func shouldIgnore(msg models.InboundMessage) bool {
	if msg.AuthorIsBot {
		return true
	}
	return msg.SelfID != "" && msg.AuthorID == msg.SelfID
}

// Dispatch processes one inbound message. The returned error is non-nil only
// for failures the classifier could not recognize; it is the original cause.
func (d *Dispatcher) Dispatch(ctx context.Context, msg models.InboundMessage) (models.DispatchOutcome, error) {
	if shouldIgnore(msg) {
		return models.Ignored(), nil
	}

	detection := utils.DetectCommand(msg.Content, d.app.Config.Prefix, msg.SelfID)
	if !detection.IsCommand {
		return models.Ignored(), nil
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = d.now()
	}
	inv := models.Invocation{
		ID:          core.NewID("inv"),
		CommandName: strings.ToLower(detection.Name),
		Args:        detection.Args,
		RawArgs:     detection.RawArgs,
		UserID:      msg.AuthorID,
		Username:    msg.AuthorName,
		ChannelID:   msg.ChannelID,
		GuildID:     msg.GuildID,
		MessageID:   msg.MessageID,
		CreatedAt:   createdAt,
	}

	d.stage(inv, models.StageReceived)
	d.stage(inv, models.StageResolving)

	def, ok := d.app.Commands.Resolve(detection.Name).Get()
	if !ok {
		return d.fail(ctx, inv, models.CommandNotFound(detection.Name))
	}
	inv.CommandName = def.Name
	ctx = appctx.SetInvocation(ctx, inv)

	d.stage(inv, models.StageChecking)
	result, stoppedAt, err := checks.Evaluate(ctx, def.Predicates, inv)
	if err != nil {
		return d.fail(ctx, inv, models.CheckFailed(def.Name, err))
	}
	if !result.Allowed {
		d.debug(inv, fmt.Sprintf("Predicate %s denied %s", stoppedAt, def.Name), models.StageChecking)
		return d.fail(ctx, inv, models.PredicateDenied(def.Name, result))
	}
	if allowed, retryAfter := d.cooldowns.Check(inv.UserID, def.Name, def.Cooldown); !allowed {
		return d.fail(ctx, inv, models.OnCooldown(def.Name, retryAfter))
	}

	d.stage(inv, models.StageExecuting)
	started := d.now()
	if err := runHandler(ctx, def, inv, channelReplier{sender: d.app.Gateway, channelID: inv.ChannelID}); err != nil {
		return d.fail(ctx, inv, models.HandlerFailed(def.Name, err))
	}

	d.complete(inv, d.now().Sub(started))
	return models.Succeeded(def.Name), nil
}

// runHandler executes the command body, turning a panic into a PanicError
func runHandler(ctx context.Context, def *models.CommandDefinition, inv models.Invocation, reply models.Replier) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return def.Handler(ctx, inv, reply)
}

func (d *Dispatcher) fail(
	ctx context.Context,
	inv models.Invocation,
	outcome models.DispatchOutcome,
) (models.DispatchOutcome, error) {
	return outcome, d.responder.Respond(ctx, inv, outcome)
}

func (d *Dispatcher) stage(inv models.Invocation, stage models.Stage) {
	d.debug(inv, string(stage)+" "+inv.CommandName, stage)
}

func (d *Dispatcher) debug(inv models.Invocation, message string, stage models.Stage) {
	d.app.Audit.Record(models.AuditRecord{
		Level:     models.AuditLevelDebug,
		Component: component,
		Message:   message,
		Stage:     stage,
		Fields: map[string]any{
			"invocation_id": inv.ID,
			"command":       inv.CommandName,
			"user_id":       inv.UserID,
		},
	})
}

func (d *Dispatcher) complete(inv models.Invocation, took time.Duration) {
	fields := map[string]any{
		"invocation_id": inv.ID,
		"command":       inv.CommandName,
		"user_id":       inv.UserID,
		"username":      inv.Username,
		"channel_id":    inv.ChannelID,
		"duration":      took.String(),
	}

	message := fmt.Sprintf("Executed %s by %s (ID: %s)", inv.CommandName, inv.Username, inv.UserID)
	if inv.InGuild() {
		fields["guild_id"] = inv.GuildID
		message = fmt.Sprintf("Executed %s in guild %s by %s (ID: %s)", inv.CommandName, inv.GuildID, inv.Username, inv.UserID)
	}

	d.app.Audit.Record(models.AuditRecord{
		Level:     models.AuditLevelInfo,
		Component: component,
		Message:   message,
		Stage:     models.StageCompleted,
		Fields:    fields,
	})
}
