package txmanager

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"botfoundation/core/log"
	dbtx "botfoundation/db/tx"
)

// maxAttempts bounds how many times a moderation write is replayed after a
// busy database or a serialization conflict
const maxAttempts = 3

// TransactionManager runs moderation writes (warn, blacklist) atomically
type TransactionManager struct {
	db *sqlx.DB
}

func NewTransactionManager(db *sqlx.DB) *TransactionManager {
	return &TransactionManager{db: db}
}

// WithTransaction runs fn inside one transaction. Calls nested inside an
// open transaction join it. Write conflicts are retried from the start, so fn
// must only touch the database through the context it receives.
func (tm *TransactionManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := dbtx.Current(ctx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = tm.attempt(ctx, fn)
		if err == nil || !dbtx.IsConflict(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		log.Warn("⚠️ Moderation write conflicted, retrying", "attempt", attempt, "error", err)
	}

	return fmt.Errorf("moderation write gave up after %d attempts: %w", maxAttempts, err)
}

func (tm *TransactionManager) attempt(ctx context.Context, fn func(context.Context) error) error {
	tx, err := tm.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin moderation transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("❌ Moderation write panicked, rolling back", "panic", r)
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Error("❌ Failed to roll back after panic", "error", rollbackErr)
			}
			panic(r)
		}
	}()

	if err := fn(dbtx.Bind(ctx, tx)); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("moderation write failed: %w, rollback failed: %v", err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit moderation transaction: %w", err)
	}

	log.Debug("📋 Moderation write committed")
	return nil
}
