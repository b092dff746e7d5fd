package errorclassifier

import (
	"context"
	"fmt"
	"strings"

	"botfoundation/clients"
	"botfoundation/core"
	"botfoundation/core/log"
	"botfoundation/models"
	"botfoundation/services"
	"botfoundation/utils"
)

const (
	component         = "errorclassifier"
	maxResponseLength = 2000
)

// Classification is the taxonomy case of a failed dispatch and what to tell the user
type Classification struct {
	Reason      models.ReasonCode
	Title       string
	UserMessage string
	// Escalate is set for failures the core cannot reason about. Nothing is
	// shown to the user and the cause is handed to the process boundary.
	Escalate bool
}

// Classifier maps failed dispatch outcomes to classifications
type Classifier struct {
	prefix string
}

func NewClassifier(prefix string) *Classifier {
	return &Classifier{prefix: prefix}
}

// Classify is pure: the same outcome always yields the same classification
func (c *Classifier) Classify(outcome models.DispatchOutcome) Classification {
	switch outcome.Kind {
	case models.OutcomeCommandNotFound:
		return c.classifyReason(models.ReasonCommandNotFound, outcome)
	case models.OutcomePredicateDenied:
		return c.classifyReason(outcome.Reason, outcome)
	case models.OutcomeCheckFailed, models.OutcomeHandlerFailed:
		return c.classifyError(outcome)
	default:
		return Classification{Reason: models.ReasonUnclassified, Escalate: true}
	}
}

func (c *Classifier) classifyError(outcome models.DispatchOutcome) Classification {
	err := outcome.Err
	if missingArg, ok := core.IsMissingArgument(err); ok {
		return Classification{
			Reason:      models.ReasonMissingArgument,
			Title:       "Error!",
			UserMessage: utils.Capitalize(missingArg.Error()),
		}
	}

	if missingPerms, ok := core.IsMissingPermissions(err); ok {
		reason := models.ReasonMissingPermissions
		if missingPerms.Bot {
			reason = models.ReasonBotMissingPermissions
		}
		return c.classifyReason(reason, models.DispatchOutcome{Detail: missingPerms.Permissions})
	}

	if core.IsPersistenceUnavailable(err) {
		return c.classifyReason(models.ReasonPersistenceUnavailable, outcome)
	}

	if core.IsHandlerError(err) {
		return c.classifyReason(models.ReasonHandlerFailed, outcome)
	}

	return Classification{Reason: models.ReasonUnclassified, Escalate: true}
}

func (c *Classifier) classifyReason(reason models.ReasonCode, outcome models.DispatchOutcome) Classification {
	classification := Classification{Reason: reason}

	switch reason {
	case models.ReasonCommandNotFound:
		classification.UserMessage = fmt.Sprintf(
			"Unknown command `%s`. Use `%shelp` to see the available commands.",
			outcome.Command, c.prefix,
		)
	case models.ReasonNotOwner:
		classification.UserMessage = "You are not the owner of the bot."
	case models.ReasonBlacklisted:
		classification.UserMessage = "You are blacklisted from using the bot."
	case models.ReasonOnCooldown:
		classification.UserMessage = fmt.Sprintf(
			"**Please slow down** - Command available again in %s",
			utils.FormatRetryAfter(outcome.RetryAfter),
		)
	case models.ReasonNoPrivateMessage:
		classification.UserMessage = "This command cannot be used in private messages."
	case models.ReasonMissingPermissions:
		classification.UserMessage = fmt.Sprintf(
			"You are missing the permission(s) `%s` to execute this command.",
			strings.Join(outcome.Detail, ", "),
		)
	case models.ReasonBotMissingPermissions:
		classification.UserMessage = fmt.Sprintf(
			"I am missing the permission(s) `%s` to fully perform this command.",
			strings.Join(outcome.Detail, ", "),
		)
	case models.ReasonMissingArgument:
		classification.Title = "Error!"
		classification.UserMessage = "A required argument is missing."
	case models.ReasonHandlerFailed:
		classification.UserMessage = "Something went wrong while running this command. Please try again later."
	case models.ReasonPersistenceUnavailable:
		classification.UserMessage = "The moderation database is unavailable, try again later."
	default:
		return Classification{Reason: models.ReasonUnclassified, Escalate: true}
	}

	return classification
}

// Responder turns a failed dispatch into exactly one user-facing response and
// exactly one terminal audit record
type Responder struct {
	classifier *Classifier
	sender     clients.MessageSender
	audit      services.AuditLogger
}

func NewResponder(classifier *Classifier, sender clients.MessageSender, audit services.AuditLogger) *Responder {
	return &Responder{
		classifier: classifier,
		sender:     sender,
		audit:      audit,
	}
}

func levelFor(reason models.ReasonCode) models.AuditLevel {
	switch reason {
	case models.ReasonCommandNotFound, models.ReasonMissingArgument, models.ReasonOnCooldown:
		return models.AuditLevelInfo
	case models.ReasonHandlerFailed, models.ReasonPersistenceUnavailable, models.ReasonUnclassified:
		return models.AuditLevelError
	default:
		return models.AuditLevelWarn
	}
}

// Respond classifies the outcome, writes the terminal audit record and sends
// the response. For Unclassified failures nothing is sent and the original
// cause is returned unmodified.
func (r *Responder) Respond(ctx context.Context, inv models.Invocation, outcome models.DispatchOutcome) error {
	classification := r.classifier.Classify(outcome)

	fields := map[string]any{
		"invocation_id": inv.ID,
		"user_id":       inv.UserID,
		"username":      inv.Username,
		"channel_id":    inv.ChannelID,
		"command":       outcome.Command,
		"reason":        string(classification.Reason),
		"outcome":       string(outcome.Kind),
	}
	if inv.InGuild() {
		fields["guild_id"] = inv.GuildID
	}
	if outcome.RetryAfter > 0 {
		fields["retry_after"] = outcome.RetryAfter.String()
	}
	if outcome.Err != nil {
		fields["error"] = outcome.Err
	}

	r.audit.Record(models.AuditRecord{
		Level:     levelFor(classification.Reason),
		Component: component,
		Message:   fmt.Sprintf("Command %s failed: %s", outcome.Command, classification.Reason),
		Stage:     models.StageFailed,
		Fields:    fields,
	})

	if classification.Escalate {
		if outcome.Err == nil {
			return fmt.Errorf("unclassified dispatch outcome %s for command %s", outcome.Kind, outcome.Command)
		}
		return outcome.Err
	}

	response := models.ErrorResponse(classification.Title, utils.Truncate(classification.UserMessage, maxResponseLength))
	if err := r.sender.SendMessage(ctx, inv.ChannelID, response); err != nil {
		log.Warn("❌ Failed to send error response", "channel_id", inv.ChannelID, "command", outcome.Command, "error", err)
	}

	return nil
}
