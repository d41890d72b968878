package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	birth_date    INTEGER NOT NULL,
	sex           TEXT NOT NULL,
	skill_level   TEXT NOT NULL,
	avatar_ref    TEXT,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	location     TEXT NOT NULL,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	starts_at    INTEGER NOT NULL,
	capacity     INTEGER CHECK (capacity IS NULL OR capacity > 0),
	description  TEXT,
	cancelled    INTEGER NOT NULL DEFAULT 0,
	organizer_id TEXT NOT NULL REFERENCES users(id),
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS registrations (
	id            TEXT PRIMARY KEY,
	event_id      TEXT NOT NULL REFERENCES events(id),
	user_id       TEXT NOT NULL REFERENCES users(id),
	registered_at INTEGER NOT NULL,
	UNIQUE (event_id, user_id)
);

CREATE INDEX IF NOT EXISTS registrations_user_id_idx ON registrations (user_id, registered_at);
`

// SQLiteDB is a sqlite adapter for persistance.
//
// The handle is limited to one connection: transactions are serialized, which makes LockEvent
// (and every check-then-insert built on it) race free without row locks.
type SQLiteDB struct {
	db *sql.DB
}

// SQLiteDBArgs are the mandatory arguments for the creation of a SQLiteDB
type SQLiteDBArgs struct {
	// DSN is the data source name, e.g. "file:racketbuddy.db" or "file::memory:".
	DSN string
}

// NewSQLiteDB opens the database and creates the schema.
func NewSQLiteDB(ctx context.Context, args SQLiteDBArgs) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", args.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteDB{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunInTx runs fn in a transaction.
func (s *SQLiteDB) RunInTx(ctx context.Context, fn func(ctx context.Context, q ports.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &queries{conn: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *SQLiteDB) queries() *queries {
	return &queries{conn: s.db}
}

// SaveUser will save the user in the database.
func (s *SQLiteDB) SaveUser(ctx context.Context, user *model.User) error {
	return s.queries().SaveUser(ctx, user)
}

// UpdateUser will update user. It returns model.ErrNotFound if the input user does not exist.
func (s *SQLiteDB) UpdateUser(ctx context.Context, user *model.User) error {
	return s.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		return q.UpdateUser(ctx, user)
	})
}

// ReplaceAvatar swaps the profile image reference of the user in its own transaction.
func (s *SQLiteDB) ReplaceAvatar(ctx context.Context, userID uuid.UUID, ref string, updatedAt time.Time) (string, error) {
	var previous string
	err := s.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		var err error
		previous, err = q.ReplaceAvatar(ctx, userID, ref, updatedAt)
		return err
	})
	return previous, err
}

func (s *SQLiteDB) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.queries().GetUser(ctx, id)
}

func (s *SQLiteDB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.queries().GetUserByEmail(ctx, email)
}

func (s *SQLiteDB) SaveEvent(ctx context.Context, event *model.Event) error {
	return s.queries().SaveEvent(ctx, event)
}

func (s *SQLiteDB) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.queries().GetEvent(ctx, id)
}

func (s *SQLiteDB) LockEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.queries().LockEvent(ctx, id)
}

func (s *SQLiteDB) MarkEventCancelled(ctx context.Context, id uuid.UUID) error {
	return s.queries().MarkEventCancelled(ctx, id)
}

func (s *SQLiteDB) ListEvents(ctx context.Context, query ports.ListEventsQuery) (*ports.ListEventsResult, error) {
	return s.queries().ListEvents(ctx, query)
}

func (s *SQLiteDB) CountRegistrations(ctx context.Context, eventIDs ...uuid.UUID) (map[uuid.UUID]int, error) {
	return s.queries().CountRegistrations(ctx, eventIDs...)
}

func (s *SQLiteDB) GetRegistration(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	return s.queries().GetRegistration(ctx, id)
}

func (s *SQLiteDB) FindRegistration(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error) {
	return s.queries().FindRegistration(ctx, eventID, userID)
}

func (s *SQLiteDB) InsertRegistration(ctx context.Context, registration *model.Registration) error {
	return s.queries().InsertRegistration(ctx, registration)
}

func (s *SQLiteDB) InsertRegistrationIfAbsent(ctx context.Context, registration *model.Registration) (bool, error) {
	return s.queries().InsertRegistrationIfAbsent(ctx, registration)
}

func (s *SQLiteDB) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	return s.queries().DeleteRegistration(ctx, id)
}

func (s *SQLiteDB) ListRegistrations(ctx context.Context, query ports.ListRegistrationsQuery) (*ports.ListRegistrationsResult, error) {
	return s.queries().ListRegistrations(ctx, query)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", model.ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
