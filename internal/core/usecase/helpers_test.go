package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/actors/sqlite"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
	"github.com/stretchr/testify/require"
)

var dummyTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: dummyTime}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockSender records the activities it is asked to send.
type MockSender struct {
	mu         sync.Mutex
	activities []model.Activity
	SendError  error
}

func (m *MockSender) Send(_ context.Context, activity model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, activity)
	return m.SendError
}

func (m *MockSender) kinds() []model.ActivityKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	kinds := make([]model.ActivityKind, len(m.activities))
	for i, a := range m.activities {
		kinds[i] = a.Kind
	}
	return kinds
}

func newRepository(t *testing.T) *sqlite.SQLiteDB {
	t.Helper()
	db, err := sqlite.NewSQLiteDB(context.Background(), sqlite.SQLiteDBArgs{DSN: "file::memory:?_pragma=foreign_keys(1)"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, repo ports.Repository) uuid.UUID {
	t.Helper()
	user := &model.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		FirstName:    "Jane",
		LastName:     "Doe",
		BirthDate:    time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Sex:          model.SexFemale,
		SkillLevel:   model.SkillIntermediate,
		CreatedAt:    dummyTime,
		UpdatedAt:    dummyTime,
	}
	require.NoError(t, repo.SaveUser(context.Background(), user))
	return user.ID
}

func intPtr(i int) *int {
	return &i
}

func eventArgs(organizerID uuid.UUID, capacity *int) model.CreateEventArgs {
	return model.CreateEventArgs{
		OrganizerID: organizerID,
		Location:    model.Location{Name: "Parco Sempione court 3", Latitude: 45.47, Longitude: 9.17},
		StartsAt:    dummyTime.Add(72 * time.Hour),
		Capacity:    capacity,
	}
}

// Steps of a transaction a failingRepository can fail.
const (
	failBegin                      = "begin"
	failSaveEvent                  = "SaveEvent"
	failInsertRegistration         = "InsertRegistration"
	failInsertRegistrationIfAbsent = "InsertRegistrationIfAbsent"
)

// storageFailure is shaped like the errors the repository adapters return when the database is down.
var storageFailure = fmt.Errorf("%w: %w", model.ErrStorage, errors.New("connection reset by peer"))

// failingRepository fails the named transaction steps with err. Steps that do not fail reach the
// wrapped repository.
type failingRepository struct {
	ports.Repository
	err    error
	failOn []string
}

func (r failingRepository) fails(step string) bool {
	return slices.Contains(r.failOn, step)
}

func (r failingRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, q ports.Queries) error) error {
	if r.fails(failBegin) {
		return r.err
	}
	return r.Repository.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		return fn(ctx, failingQueries{Queries: q, repo: r})
	})
}

type failingQueries struct {
	ports.Queries
	repo failingRepository
}

func (q failingQueries) SaveEvent(ctx context.Context, event *model.Event) error {
	if q.repo.fails(failSaveEvent) {
		return q.repo.err
	}
	return q.Queries.SaveEvent(ctx, event)
}

func (q failingQueries) InsertRegistration(ctx context.Context, registration *model.Registration) error {
	if q.repo.fails(failInsertRegistration) {
		return q.repo.err
	}
	return q.Queries.InsertRegistration(ctx, registration)
}

func (q failingQueries) InsertRegistrationIfAbsent(ctx context.Context, registration *model.Registration) (bool, error) {
	if q.repo.fails(failInsertRegistrationIfAbsent) {
		return false, q.repo.err
	}
	return q.Queries.InsertRegistrationIfAbsent(ctx, registration)
}
