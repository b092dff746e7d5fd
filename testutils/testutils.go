package testutils

import (
	"context"
	"encoding/binary"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"botfoundation/appctx"
	"botfoundation/core"
	"botfoundation/db"
	"botfoundation/models"
)

// NewTestDB opens a migrated in-memory sqlite database and returns it with its schema
func NewTestDB(t *testing.T) (*sqlx.DB, string) {
	t.Helper()

	conn, err := db.NewConnection("sqlite://:memory:")
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { conn.Close() })

	schema := db.SchemaFor(conn, "")
	require.NoError(t, db.Migrate(context.Background(), conn, schema), "Failed to migrate test database")
	return conn, schema
}

// RandomUserID returns a unique snowflake-shaped user id for fixtures
func RandomUserID() string {
	id := uuid.New()
	return strconv.FormatUint(binary.BigEndian.Uint64(id[:8])>>1, 10)
}

// CreateTestInvocation builds an invocation for the given command in a guild channel
func CreateTestInvocation(commandName string, args ...string) models.Invocation {
	return models.Invocation{
		ID:          core.NewID("inv"),
		CommandName: commandName,
		Args:        args,
		UserID:      RandomUserID(),
		Username:    "tester",
		ChannelID:   "channel-1",
		GuildID:     "guild-1",
		MessageID:   "message-1",
		CreatedAt:   time.Now(),
	}
}

// CreateTestContext creates a context carrying the given invocation
func CreateTestContext(inv models.Invocation) context.Context {
	return appctx.SetInvocation(context.Background(), inv)
}

// RecordingAuditLogger collects audit records in memory
type RecordingAuditLogger struct {
	mu      sync.Mutex
	records []models.AuditRecord
}

func NewRecordingAuditLogger() *RecordingAuditLogger {
	return &RecordingAuditLogger{}
}

func (l *RecordingAuditLogger) Record(record models.AuditRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
}

// Records returns a copy of everything recorded so far
func (l *RecordingAuditLogger) Records() []models.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.AuditRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Terminal returns only the records with a terminal stage
func (l *RecordingAuditLogger) Terminal() []models.AuditRecord {
	var out []models.AuditRecord
	for _, r := range l.Records() {
		if r.Stage.Terminal() {
			out = append(out, r)
		}
	}
	return out
}

// Stages returns the stage of every record in order
func (l *RecordingAuditLogger) Stages() []models.Stage {
	var out []models.Stage
	for _, r := range l.Records() {
		out = append(out, r.Stage)
	}
	return out
}

func (l *RecordingAuditLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}

// FakeClock is a manually advanced clock
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
