package tx

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type txKey struct{}

// Querier is the query surface the moderation repositories need; both
// *sqlx.DB and *sqlx.Tx satisfy it
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// Bind returns a context carrying tx, so repository calls made with it join
// the same moderation write
func Bind(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Current returns the transaction bound to ctx, if any
func Current(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx, ok
}

// QuerierFor returns the transaction bound to ctx, or db when there is none
func QuerierFor(ctx context.Context, db *sqlx.DB) Querier {
	if tx, ok := Current(ctx); ok {
		return tx
	}
	return db
}

// postgres SQLSTATE codes for conflicts that succeed when the transaction is replayed
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// IsConflict reports whether err is a transient write conflict: sqlite busy or
// locked, or a postgres serialization failure or deadlock
func IsConflict(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// extended result codes carry the primary code in the low byte
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
	}

	return false
}
