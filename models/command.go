package models

import (
	"context"
	"time"
)

// InboundMessage is a chat message as delivered by the gateway, before any parsing
type InboundMessage struct {
	MessageID   string
	ChannelID   string
	GuildID     string // empty for direct messages
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	// SelfID is the agent's own user id at the time the event was received
	SelfID    string
	Content   string
	CreatedAt time.Time
}

// Invocation is a resolved command call. It is created once per inbound event
// and never mutated afterwards.
type Invocation struct {
	ID          string
	CommandName string
	Args        []string
	RawArgs     string
	UserID      string
	Username    string
	ChannelID   string
	GuildID     string
	MessageID   string
	CreatedAt   time.Time
}

// InGuild reports whether the invocation originated from a guild channel
func (i Invocation) InGuild() bool {
	return i.GuildID != ""
}

// Replier sends a response to the channel an invocation came from
type Replier interface {
	Reply(ctx context.Context, response Response) error
}

// Handler executes the body of a command
type Handler func(ctx context.Context, inv Invocation, reply Replier) error

// CooldownPolicy limits how often one user may run a command. The zero value
// disables the cooldown.
type CooldownPolicy struct {
	Window         time.Duration
	MaxInvocations int
}

// Enabled reports whether the policy restricts anything
func (p CooldownPolicy) Enabled() bool {
	return p.Window > 0 && p.MaxInvocations > 0
}

// CommandDefinition describes a registered command. Definitions are immutable
// once handed to the registry.
type CommandDefinition struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Module      string
	Predicates  []Predicate
	Handler     Handler
	Cooldown    CooldownPolicy
}

// Names returns the canonical name followed by all aliases
func (d *CommandDefinition) Names() []string {
	names := make([]string, 0, len(d.Aliases)+1)
	names = append(names, d.Name)
	return append(names, d.Aliases...)
}
