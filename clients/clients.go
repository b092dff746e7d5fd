package clients

import (
	"context"

	"botfoundation/models"
)

// MessageSender delivers responses to a chat channel
type MessageSender interface {
	SendMessage(ctx context.Context, channelID string, response models.Response) error
}

// PresenceSetter updates the activity shown for the agent
type PresenceSetter interface {
	SetPresence(ctx context.Context, presence models.Presence) error
}

// Gateway is the agent's connection to the chat platform
type Gateway interface {
	MessageSender
	PresenceSetter

	// SelfID returns the agent's own user id, or "" before the session is ready
	SelfID() string

	// SyncCommandCatalog publishes the registered commands to one guild, or
	// globally when guildID is empty
	SyncCommandCatalog(ctx context.Context, guildID string, defs []*models.CommandDefinition) error

	// MemberPermissions returns the effective permission bits of a member in a channel
	MemberPermissions(ctx context.Context, guildID, channelID, userID string) (int64, error)
}
