package models

import (
	"time"
)

// MaxWarnReasonLength bounds WarnRecord.Reason
const MaxWarnReasonLength = 255

// BlacklistEntry bars a user from running commands. At most one entry exists per user.
type BlacklistEntry struct {
	UserID    string    `json:"user_id"    db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WarnRecord is an append-only moderation warning
type WarnRecord struct {
	ID          int64     `json:"id"           db:"id"`
	UserID      string    `json:"user_id"      db:"user_id"`
	GuildID     string    `json:"guild_id"     db:"guild_id"`
	ModeratorID string    `json:"moderator_id" db:"moderator_id"`
	Reason      string    `json:"reason"       db:"reason"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}
