package services

import (
	"context"

	"github.com/samber/mo"

	"botfoundation/models"
)

// ModerationService defines the interface for blacklist and warn operations
type ModerationService interface {
	IsBlacklisted(ctx context.Context, userID string) (bool, error)
	GetBlacklistEntry(ctx context.Context, userID string) (mo.Option[*models.BlacklistEntry], error)
	// AddBlacklistEntry returns false when the user was already blacklisted
	AddBlacklistEntry(ctx context.Context, userID string) (bool, error)
	// RemoveBlacklistEntry returns core.ErrNotFound when the user was not blacklisted
	RemoveBlacklistEntry(ctx context.Context, userID string) error
	ListBlacklist(ctx context.Context) ([]*models.BlacklistEntry, error)
	AddWarn(ctx context.Context, userID, guildID, moderatorID, reason string) (*models.WarnRecord, error)
	// WarnUser adds a warn and returns it together with the user's warn count in the guild
	WarnUser(ctx context.Context, userID, guildID, moderatorID, reason string) (*models.WarnRecord, int, error)
	ListWarns(ctx context.Context, userID, guildID string) ([]*models.WarnRecord, error)
	// RemoveWarn returns core.ErrNotFound when no warn with that id exists in the guild
	RemoveWarn(ctx context.Context, warnID int64, guildID string) error
}

// CommandCatalog is the read side of the command registry
type CommandCatalog interface {
	Resolve(name string) mo.Option[*models.CommandDefinition]
	Commands() []*models.CommandDefinition
}

// AuditLogger is the process-wide sink for dispatch and scheduler records
type AuditLogger interface {
	Record(record models.AuditRecord)
}

// TransactionManager makes a group of moderation writes atomic
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
