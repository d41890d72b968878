package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SQLiteDBTestSuite struct {
	suite.Suite
	adapter *SQLiteDB
}

var dummyTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func (suite *SQLiteDBTestSuite) SetupTest() {
	db, err := NewSQLiteDB(context.Background(), SQLiteDBArgs{DSN: "file::memory:"})
	suite.Require().NoError(err)
	suite.adapter = db
}

func (suite *SQLiteDBTestSuite) TearDownTest() {
	suite.Require().NoError(suite.adapter.Close())
}

func newUser(email string) *model.User {
	return &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Jane",
		LastName:     "Doe",
		BirthDate:    time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Sex:          model.SexFemale,
		SkillLevel:   model.SkillIntermediate,
		CreatedAt:    dummyTime,
		UpdatedAt:    dummyTime,
	}
}

func newEvent(organizerID uuid.UUID, capacity *int) *model.Event {
	return &model.Event{
		ID:          uuid.New(),
		Location:    model.Location{Name: "Court 1", Latitude: 45.46, Longitude: 9.19},
		StartsAt:    dummyTime.Add(48 * time.Hour),
		Capacity:    capacity,
		Description: "doubles",
		OrganizerID: organizerID,
		CreatedAt:   dummyTime,
	}
}

func (suite *SQLiteDBTestSuite) TestSaveUser() {
	tests := []struct {
		name        string
		existing    *model.User
		input       *model.User
		expectedErr assert.ErrorAssertionFunc
	}{
		{
			name:  "insert new user",
			input: newUser("newuser@example.com"),
		},
		{
			name:     "email already taken",
			existing: newUser("taken@example.com"),
			input:    newUser("taken@example.com"),
			expectedErr: func(t assert.TestingT, err error, _ ...interface{}) bool {
				return assert.ErrorIs(t, err, model.ErrEmailTaken) && assert.ErrorIs(t, err, model.ErrConflict)
			},
		},
	}

	for _, test := range tests {
		suite.Run(test.name, func() {
			ctx := context.Background()
			if test.existing != nil {
				suite.Require().NoError(suite.adapter.SaveUser(ctx, test.existing))
			}
			err := suite.adapter.SaveUser(ctx, test.input)
			if test.expectedErr != nil {
				test.expectedErr(suite.T(), err)
				return
			}
			suite.Require().NoError(err)
			got, err := suite.adapter.GetUser(ctx, test.input.ID)
			suite.Require().NoError(err)
			suite.Equal(test.input, got)

			byEmail, err := suite.adapter.GetUserByEmail(ctx, test.input.Email)
			suite.Require().NoError(err)
			suite.Equal(test.input.ID, byEmail.ID)
		})
	}
}

func (suite *SQLiteDBTestSuite) TestUpdateUser() {
	ctx := context.Background()
	existing := newUser("jane@example.com")
	suite.Require().NoError(suite.adapter.SaveUser(ctx, existing))

	input := &model.User{ID: existing.ID, FirstName: "Janet", AvatarRef: "avatar-1", UpdatedAt: dummyTime.Add(time.Minute)}
	suite.Require().NoError(suite.adapter.UpdateUser(ctx, input))
	suite.Equal("Janet", input.FirstName)
	suite.Equal(existing.LastName, input.LastName)
	suite.Equal(existing.Email, input.Email)
	suite.Equal("avatar-1", input.AvatarRef)
	suite.Equal(dummyTime.Add(time.Minute), input.UpdatedAt)

	got, err := suite.adapter.GetUser(ctx, existing.ID)
	suite.Require().NoError(err)
	suite.Equal(input, got)

	err = suite.adapter.UpdateUser(ctx, &model.User{ID: uuid.New(), FirstName: "ghost"})
	suite.ErrorIs(err, model.ErrNotFound)
}

func (suite *SQLiteDBTestSuite) TestReplaceAvatar() {
	ctx := context.Background()
	user := newUser("jane@example.com")
	suite.Require().NoError(suite.adapter.SaveUser(ctx, user))

	previous, err := suite.adapter.ReplaceAvatar(ctx, user.ID, "avatar-1", dummyTime.Add(time.Minute))
	suite.Require().NoError(err)
	suite.Empty(previous)

	previous, err = suite.adapter.ReplaceAvatar(ctx, user.ID, "avatar-2", dummyTime.Add(2*time.Minute))
	suite.Require().NoError(err)
	suite.Equal("avatar-1", previous)

	got, err := suite.adapter.GetUser(ctx, user.ID)
	suite.Require().NoError(err)
	suite.Equal("avatar-2", got.AvatarRef)
	suite.Equal(dummyTime.Add(2*time.Minute), got.UpdatedAt)
	suite.Equal(user.FirstName, got.FirstName)

	_, err = suite.adapter.ReplaceAvatar(ctx, uuid.New(), "avatar-3", dummyTime)
	suite.ErrorIs(err, model.ErrNotFound)
	_, err = suite.adapter.ReplaceAvatar(ctx, user.ID, "", dummyTime)
	suite.ErrorIs(err, model.ErrInvalidInput)
}

func (suite *SQLiteDBTestSuite) TestEvents() {
	ctx := context.Background()
	organizer := newUser("organizer@example.com")
	suite.Require().NoError(suite.adapter.SaveUser(ctx, organizer))

	capacity := 4
	event := newEvent(organizer.ID, &capacity)
	suite.Require().NoError(suite.adapter.SaveEvent(ctx, event))

	got, err := suite.adapter.GetEvent(ctx, event.ID)
	suite.Require().NoError(err)
	suite.Equal(event, got)

	uncapped := newEvent(organizer.ID, nil)
	suite.Require().NoError(suite.adapter.SaveEvent(ctx, uncapped))
	got, err = suite.adapter.LockEvent(ctx, uncapped.ID)
	suite.Require().NoError(err)
	suite.Nil(got.Capacity)

	suite.Require().NoError(suite.adapter.MarkEventCancelled(ctx, event.ID))
	got, err = suite.adapter.GetEvent(ctx, event.ID)
	suite.Require().NoError(err)
	suite.True(got.Cancelled)

	suite.ErrorIs(suite.adapter.MarkEventCancelled(ctx, uuid.New()), model.ErrNotFound)
	_, err = suite.adapter.GetEvent(ctx, uuid.New())
	suite.ErrorIs(err, model.ErrNotFound)

	zero := 0
	err = suite.adapter.SaveEvent(ctx, newEvent(organizer.ID, &zero))
	suite.ErrorIs(err, model.ErrStorage, "capacity must be positive")

	err = suite.adapter.SaveEvent(ctx, newEvent(uuid.New(), nil))
	suite.ErrorIs(err, model.ErrStorage, "organizer must exist")
}

func (suite *SQLiteDBTestSuite) TestListEvents() {
	ctx := context.Background()
	organizer := newUser("organizer@example.com")
	other := newUser("other@example.com")
	suite.Require().NoError(suite.adapter.SaveUser(ctx, organizer))
	suite.Require().NoError(suite.adapter.SaveUser(ctx, other))

	first := newEvent(organizer.ID, nil)
	first.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	cancelled := newEvent(organizer.ID, nil)
	cancelled.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	third := newEvent(other.ID, nil)
	third.ID = uuid.MustParse("00000000-0000-0000-0000-000000000003")
	for _, e := range []*model.Event{third, cancelled, first} {
		suite.Require().NoError(suite.adapter.SaveEvent(ctx, e))
	}
	suite.Require().NoError(suite.adapter.MarkEventCancelled(ctx, cancelled.ID))

	tests := []struct {
		name        string
		query       ports.ListEventsQuery
		expectedIDs []uuid.UUID
	}{
		{
			name:        "active only",
			query:       ports.ListEventsQuery{},
			expectedIDs: []uuid.UUID{first.ID, third.ID},
		},
		{
			name:        "cancelled included",
			query:       ports.ListEventsQuery{IncludeCancelled: true},
			expectedIDs: []uuid.UUID{first.ID, cancelled.ID, third.ID},
		},
		{
			name:        "pagination",
			query:       ports.ListEventsQuery{IncludeCancelled: true, Limit: 1, Offset: 1},
			expectedIDs: []uuid.UUID{cancelled.ID},
		},
		{
			name:        "offset without limit",
			query:       ports.ListEventsQuery{IncludeCancelled: true, Offset: 2},
			expectedIDs: []uuid.UUID{third.ID},
		},
		{
			name:        "by organizer",
			query:       ports.ListEventsQuery{IncludeCancelled: true, OrganizerID: organizer.ID},
			expectedIDs: []uuid.UUID{first.ID, cancelled.ID},
		},
		{
			name:        "by ids",
			query:       ports.ListEventsQuery{IDs: []uuid.UUID{third.ID, cancelled.ID}},
			expectedIDs: []uuid.UUID{third.ID},
		},
		{
			name:        "no match",
			query:       ports.ListEventsQuery{OrganizerID: uuid.New()},
			expectedIDs: []uuid.UUID{},
		},
	}

	for _, test := range tests {
		suite.Run(test.name, func() {
			res, err := suite.adapter.ListEvents(ctx, test.query)
			suite.Require().NoError(err)
			ids := make([]uuid.UUID, len(res.Events))
			for i, e := range res.Events {
				ids[i] = e.ID
			}
			suite.Equal(test.expectedIDs, ids)
		})
	}
}

func (suite *SQLiteDBTestSuite) TestRegistrations() {
	ctx := context.Background()
	organizer := newUser("organizer@example.com")
	player := newUser("player@example.com")
	suite.Require().NoError(suite.adapter.SaveUser(ctx, organizer))
	suite.Require().NoError(suite.adapter.SaveUser(ctx, player))
	event := newEvent(organizer.ID, nil)
	suite.Require().NoError(suite.adapter.SaveEvent(ctx, event))

	first := &model.Registration{EventID: event.ID, UserID: player.ID, RegisteredAt: dummyTime}
	suite.Require().NoError(suite.adapter.InsertRegistration(ctx, first))
	suite.NotEqual(uuid.Nil, first.ID)

	err := suite.adapter.InsertRegistration(ctx, &model.Registration{EventID: event.ID, UserID: player.ID, RegisteredAt: dummyTime})
	suite.ErrorIs(err, model.ErrAlreadyRegistered)

	inserted, err := suite.adapter.InsertRegistrationIfAbsent(ctx, &model.Registration{EventID: event.ID, UserID: player.ID, RegisteredAt: dummyTime})
	suite.Require().NoError(err)
	suite.False(inserted)

	inserted, err = suite.adapter.InsertRegistrationIfAbsent(ctx, &model.Registration{EventID: event.ID, UserID: organizer.ID, RegisteredAt: dummyTime.Add(time.Second)})
	suite.Require().NoError(err)
	suite.True(inserted)

	counts, err := suite.adapter.CountRegistrations(ctx, event.ID, uuid.New())
	suite.Require().NoError(err)
	suite.Equal(map[uuid.UUID]int{event.ID: 2}, counts)

	found, err := suite.adapter.FindRegistration(ctx, event.ID, player.ID)
	suite.Require().NoError(err)
	suite.Equal(first, found)

	res, err := suite.adapter.ListRegistrations(ctx, ports.ListRegistrationsQuery{EventID: event.ID})
	suite.Require().NoError(err)
	suite.Len(res.Registrations, 2)
	suite.Equal(player.ID, res.Registrations[0].UserID)

	res, err = suite.adapter.ListRegistrations(ctx, ports.ListRegistrationsQuery{UserID: organizer.ID})
	suite.Require().NoError(err)
	suite.Len(res.Registrations, 1)

	suite.Require().NoError(suite.adapter.DeleteRegistration(ctx, first.ID))
	suite.ErrorIs(suite.adapter.DeleteRegistration(ctx, first.ID), model.ErrNotFound)
	_, err = suite.adapter.GetRegistration(ctx, first.ID)
	suite.ErrorIs(err, model.ErrNotFound)
	_, err = suite.adapter.FindRegistration(ctx, event.ID, player.ID)
	suite.ErrorIs(err, model.ErrNotFound)
}

func (suite *SQLiteDBTestSuite) TestRunInTxRollsBack() {
	ctx := context.Background()
	organizer := newUser("organizer@example.com")
	suite.Require().NoError(suite.adapter.SaveUser(ctx, organizer))
	event := newEvent(organizer.ID, nil)

	err := suite.adapter.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		if err := q.SaveEvent(ctx, event); err != nil {
			return err
		}
		return q.InsertRegistration(ctx, &model.Registration{EventID: event.ID, UserID: uuid.New(), RegisteredAt: dummyTime})
	})
	suite.ErrorIs(err, model.ErrStorage, "unknown user violates the foreign key")

	_, err = suite.adapter.GetEvent(ctx, event.ID)
	suite.ErrorIs(err, model.ErrNotFound)
}

func TestSQLiteDBTestSuite(t *testing.T) {
	suite.Run(t, new(SQLiteDBTestSuite))
}
