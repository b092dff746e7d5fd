package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	// necessary import to wire up the postgres driver
	_ "github.com/lib/pq"
	// necessary import to wire up the pure-go sqlite driver
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ParseDatabaseURL maps a connection string to a driver name and DSN.
// postgres:// and postgresql:// URLs use lib/pq; sqlite:// URLs and bare
// file paths use modernc sqlite.
func ParseDatabaseURL(databaseURL string) (driver string, dsn string, err error) {
	switch {
	case databaseURL == "":
		return "", "", fmt.Errorf("database url is empty")
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn = strings.TrimPrefix(databaseURL, "sqlite://")
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		dsn = databaseURL
	case strings.Contains(databaseURL, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme: %s", databaseURL)
	default:
		dsn = databaseURL
	}

	if dsn == "" {
		return "", "", fmt.Errorf("sqlite database path is empty")
	}
	if !strings.Contains(dsn, "_pragma=") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	return DriverSQLite, dsn, nil
}

func NewConnection(databaseURL string) (*sqlx.DB, error) {
	driver, dsn, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// sqlite allows a single writer; in-memory databases also vanish with their connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// SchemaFor returns the schema qualifier to use for the connection's driver
func SchemaFor(db *sqlx.DB, configured string) string {
	if db.DriverName() == DriverSQLite {
		return "main"
	}
	if configured == "" {
		return "public"
	}
	return configured
}
