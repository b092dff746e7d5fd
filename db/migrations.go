package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the moderation tables when they do not exist yet
func Migrate(ctx context.Context, db *sqlx.DB, schema string) error {
	idColumn := "id BIGSERIAL PRIMARY KEY"
	timestampType := "TIMESTAMPTZ"
	if db.DriverName() == DriverSQLite {
		idColumn = "id INTEGER PRIMARY KEY AUTOINCREMENT"
		timestampType = "TIMESTAMP"
	}

	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.blacklist (
			user_id TEXT PRIMARY KEY,
			created_at %s NOT NULL
		)`, schema, timestampType),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.warns (
			%s,
			user_id TEXT NOT NULL CHECK (user_id <> ''),
			guild_id TEXT NOT NULL CHECK (guild_id <> ''),
			moderator_id TEXT NOT NULL CHECK (moderator_id <> ''),
			reason VARCHAR(255) NOT NULL CHECK (length(reason) <= 255),
			created_at %s NOT NULL
		)`, schema, idColumn, timestampType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS warns_user_guild_idx ON %s.warns (user_id, guild_id)`, schema),
	}

	if db.DriverName() == DriverSQLite {
		// sqlite expects the schema on the index name rather than the table
		statements[2] = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s.warns_user_guild_idx ON warns (user_id, guild_id)`, schema)
	}

	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
