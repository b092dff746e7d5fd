package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/mo"

	dbtx "botfoundation/db/tx"
	"botfoundation/models"
)

type BlacklistRepository struct {
	db     *sqlx.DB
	schema string
}

// Column names for blacklist table
var blacklistColumns = []string{
	"user_id",
	"created_at",
}

func NewBlacklistRepository(db *sqlx.DB, schema string) *BlacklistRepository {
	return &BlacklistRepository{db: db, schema: schema}
}

// CreateBlacklistEntry inserts an entry and reports whether a new row was created.
// Concurrent inserts for the same user are resolved by the primary key.
func (r *BlacklistRepository) CreateBlacklistEntry(
	ctx context.Context,
	userID string,
	createdAt time.Time,
) (bool, error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		INSERT INTO %s.blacklist (user_id, created_at)
		VALUES (?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		r.schema))

	result, err := db.ExecContext(ctx, query, userID, createdAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to create blacklist entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *BlacklistRepository) GetBlacklistEntry(
	ctx context.Context,
	userID string,
) (mo.Option[*models.BlacklistEntry], error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM %s.blacklist
		WHERE user_id = ?`,
		strings.Join(blacklistColumns, ", "), r.schema))

	var entry models.BlacklistEntry
	err := db.GetContext(ctx, &entry, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mo.None[*models.BlacklistEntry](), nil
		}
		return mo.None[*models.BlacklistEntry](), fmt.Errorf("failed to get blacklist entry: %w", err)
	}

	return mo.Some(&entry), nil
}

func (r *BlacklistRepository) ExistsBlacklistEntry(ctx context.Context, userID string) (bool, error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s.blacklist
		WHERE user_id = ?`,
		r.schema))

	var count int
	if err := db.GetContext(ctx, &count, query, userID); err != nil {
		return false, fmt.Errorf("failed to check blacklist entry: %w", err)
	}

	return count > 0, nil
}

func (r *BlacklistRepository) ListBlacklistEntries(ctx context.Context) ([]*models.BlacklistEntry, error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s.blacklist
		ORDER BY created_at ASC, user_id ASC`,
		strings.Join(blacklistColumns, ", "), r.schema)

	var entries []models.BlacklistEntry
	if err := db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list blacklist entries: %w", err)
	}

	// Convert to slice of pointers
	result := make([]*models.BlacklistEntry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}

	return result, nil
}

// DeleteBlacklistEntry reports whether a row was removed
func (r *BlacklistRepository) DeleteBlacklistEntry(ctx context.Context, userID string) (bool, error) {
	db := dbtx.QuerierFor(ctx, r.db)
	query := db.Rebind(fmt.Sprintf(`
		DELETE FROM %s.blacklist
		WHERE user_id = ?`,
		r.schema))

	result, err := db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete blacklist entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
