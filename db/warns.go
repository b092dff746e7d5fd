package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	dbtx "botfoundation/db/tx"
	"botfoundation/models"
)

type WarnsRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for warns table
var warnsColumns = []string{
	"id",
	"user_id",
	"guild_id",
	"moderator_id",
	"reason",
	"created_at",
}

func NewWarnsRepository(db *sqlx.DB, schema string) *WarnsRepository {
	return &WarnsRepository{db: db, schema: schema}
}

// CreateWarn inserts the record and fills in its database assigned id
func (r *WarnsRepository) CreateWarn(ctx context.Context, warn *models.WarnRecord) error {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		INSERT INTO %s.warns (user_id, guild_id, moderator_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		r.schema))

	var id int64
	err := db.GetContext(
		ctx,
		&id,
		query,
		warn.UserID,
		warn.GuildID,
		warn.ModeratorID,
		warn.Reason,
		warn.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create warn: %w", err)
	}

	warn.ID = id
	return nil
}

func (r *WarnsRepository) GetWarnsByUserAndGuild(
	ctx context.Context,
	userID, guildID string,
) ([]*models.WarnRecord, error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM %s.warns
		WHERE user_id = ? AND guild_id = ?
		ORDER BY id ASC`,
		strings.Join(warnsColumns, ", "), r.schema))

	var warns []models.WarnRecord
	if err := db.SelectContext(ctx, &warns, query, userID, guildID); err != nil {
		return nil, fmt.Errorf("failed to get warns: %w", err)
	}

	// Convert to slice of pointers
	result := make([]*models.WarnRecord, len(warns))
	for i := range warns {
		result[i] = &warns[i]
	}

	return result, nil
}

func (r *WarnsRepository) CountWarnsByUserAndGuild(ctx context.Context, userID, guildID string) (int, error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s.warns
		WHERE user_id = ? AND guild_id = ?`,
		r.schema))

	var count int
	if err := db.GetContext(ctx, &count, query, userID, guildID); err != nil {
		return 0, fmt.Errorf("failed to count warns: %w", err)
	}

	return count, nil
}

// DeleteWarn removes a single warn by id, scoped to its guild
func (r *WarnsRepository) DeleteWarn(ctx context.Context, id int64, guildID string) (bool, error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		DELETE FROM %s.warns
		WHERE id = ? AND guild_id = ?`,
		r.schema))

	result, err := db.ExecContext(ctx, query, id, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to delete warn: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
