package txmanager

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfoundation/db"
	dbtx "botfoundation/db/tx"
	"botfoundation/models"
	"botfoundation/services"
	"botfoundation/testutils"
)

func setupTransactionTest(
	t *testing.T,
) (services.TransactionManager, *db.BlacklistRepository, *db.WarnsRepository) {
	dbConn, schema := testutils.NewTestDB(t)

	txManager := NewTransactionManager(dbConn)
	blacklistRepo := db.NewBlacklistRepository(dbConn, schema)
	warnsRepo := db.NewWarnsRepository(dbConn, schema)

	return txManager, blacklistRepo, warnsRepo
}

func TestTransactionManager_WithTransaction_Success(t *testing.T) {
	txManager, blacklistRepo, _ := setupTransactionTest(t)
	ctx := context.Background()
	userID := testutils.RandomUserID()

	err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := blacklistRepo.CreateBlacklistEntry(ctx, userID, time.Now())
		return err
	})
	require.NoError(t, err)

	// Entry should exist after commit
	exists, err := blacklistRepo.ExistsBlacklistEntry(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransactionManager_WithTransaction_Rollback_OnError(t *testing.T) {
	txManager, blacklistRepo, _ := setupTransactionTest(t)
	ctx := context.Background()
	userID := testutils.RandomUserID()

	err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := blacklistRepo.CreateBlacklistEntry(ctx, userID, time.Now()); err != nil {
			return err
		}

		// Return an error to trigger rollback
		return errors.New("intentional error to trigger rollback")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intentional error to trigger rollback")

	exists, err := blacklistRepo.ExistsBlacklistEntry(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists, "Entry should not exist after rollback")
}

func TestTransactionManager_WithTransaction_Rollback_OnPanic(t *testing.T) {
	txManager, blacklistRepo, _ := setupTransactionTest(t)
	ctx := context.Background()
	userID := testutils.RandomUserID()

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "Expected panic")
			assert.Equal(t, "intentional panic to test rollback", r)
		}()

		_ = txManager.WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := blacklistRepo.CreateBlacklistEntry(ctx, userID, time.Now()); err != nil {
				return err
			}
			panic("intentional panic to test rollback")
		})
	}()

	exists, err := blacklistRepo.ExistsBlacklistEntry(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists, "Entry should not exist after panic rollback")
}

func TestTransactionManager_WithTransaction_MultipleDatabaseOperations_PartialRollback(t *testing.T) {
	txManager, blacklistRepo, warnsRepo := setupTransactionTest(t)
	ctx := context.Background()
	userID := testutils.RandomUserID()

	err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
		warn := &models.WarnRecord{
			UserID:      userID,
			GuildID:     "guild-1",
			ModeratorID: "moderator-1",
			Reason:      "first",
			CreatedAt:   time.Now(),
		}
		if err := warnsRepo.CreateWarn(ctx, warn); err != nil {
			return err
		}
		if _, err := blacklistRepo.CreateBlacklistEntry(ctx, userID, time.Now()); err != nil {
			return err
		}

		// Violates the non-empty moderator constraint
		return warnsRepo.CreateWarn(ctx, &models.WarnRecord{
			UserID:    userID,
			GuildID:   "guild-1",
			Reason:    "second",
			CreatedAt: time.Now(),
		})
	})
	require.Error(t, err)

	count, err := warnsRepo.CountWarnsByUserAndGuild(ctx, userID, "guild-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	exists, err := blacklistRepo.ExistsBlacklistEntry(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTransactionManager_NestedTransactions(t *testing.T) {
	txManager, blacklistRepo, _ := setupTransactionTest(t)
	ctx := context.Background()
	outerUser := testutils.RandomUserID()
	innerUser := testutils.RandomUserID()

	err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := blacklistRepo.CreateBlacklistEntry(ctx, outerUser, time.Now()); err != nil {
			return err
		}

		// Nested call joins the outer transaction
		return txManager.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := blacklistRepo.CreateBlacklistEntry(ctx, innerUser, time.Now())
			return err
		})
	})
	require.NoError(t, err)

	entries, err := blacklistRepo.ListBlacklistEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTransactionManager_RetriesWriteConflict(t *testing.T) {
	txManager, blacklistRepo, _ := setupTransactionTest(t)
	ctx := context.Background()
	userID := testutils.RandomUserID()

	attempts := 0
	err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
		attempts++
		if _, err := blacklistRepo.CreateBlacklistEntry(ctx, userID, time.Now()); err != nil {
			return err
		}
		if attempts == 1 {
			return fmt.Errorf("failed to insert warn: %w", &pq.Error{Code: "40001"})
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	// the first attempt was rolled back, so only one entry exists
	entries, err := blacklistRepo.ListBlacklistEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTransactionManager_GivesUpAfterRepeatedConflicts(t *testing.T) {
	txManager, _, _ := setupTransactionTest(t)

	attempts := 0
	err := txManager.WithTransaction(context.Background(), func(ctx context.Context) error {
		attempts++
		return &pq.Error{Code: "40P01"}
	})
	require.Error(t, err)
	assert.Equal(t, maxAttempts, attempts)
	assert.Contains(t, err.Error(), "gave up after 3 attempts")

	var pqErr *pq.Error
	require.ErrorAs(t, err, &pqErr)
	assert.Equal(t, pq.ErrorCode("40P01"), pqErr.Code)
}

func TestTransactionManager_DoesNotRetryOtherErrors(t *testing.T) {
	txManager, _, _ := setupTransactionTest(t)

	attempts := 0
	err := txManager.WithTransaction(context.Background(), func(ctx context.Context) error {
		attempts++
		return &pq.Error{Code: "23505"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.NotContains(t, err.Error(), "gave up")
}

func TestTransactionManager_NestedCallDoesNotRetry(t *testing.T) {
	txManager, _, _ := setupTransactionTest(t)

	inner := 0
	err := txManager.WithTransaction(context.Background(), func(ctx context.Context) error {
		err := txManager.WithTransaction(ctx, func(ctx context.Context) error {
			inner++
			return errors.New("inner failure")
		})
		// the outer write decides; a plain failure ends it
		return err
	})
	require.EqualError(t, err, "inner failure")
	assert.Equal(t, 1, inner)
}

func TestQuerierFor_UsesBoundTransaction(t *testing.T) {
	dbConn, _ := testutils.NewTestDB(t)
	ctx := context.Background()

	tx, ok := dbtx.Current(ctx)
	assert.False(t, ok)
	assert.Nil(t, tx)
	assert.Equal(t, dbConn, dbtx.QuerierFor(ctx, dbConn))

	sqlTx, err := dbConn.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer sqlTx.Rollback()

	txCtx := dbtx.Bind(ctx, sqlTx)
	assert.Equal(t, sqlTx, dbtx.QuerierFor(txCtx, dbConn))
}
