package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

// Repository is the interface for the persistence layer.
type Repository interface {
	Queries

	// RunInTx runs fn in a single transaction. The transaction commits if fn returns nil and rolls back otherwise.
	// fn must only use the Queries it receives.
	RunInTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}

// Queries are the persistence operations. Failures of the store are wrapped in model.ErrStorage.
type Queries interface {
	// SaveUser durably saves the user. It returns model.ErrEmailTaken if the email is in use.
	SaveUser(ctx context.Context, user *model.User) error

	// UpdateUser updates the user. All the non-zero values specified will be updated.
	// It returns model.ErrNotFound if the user does not exist.
	UpdateUser(ctx context.Context, user *model.User) error

	// ReplaceAvatar sets the profile image reference of the user and returns the one it replaced, empty if none.
	// Concurrent replacements of the same user are serialized. It returns model.ErrNotFound if the user does not exist.
	ReplaceAvatar(ctx context.Context, userID uuid.UUID, ref string, updatedAt time.Time) (previous string, err error)

	// GetUser returns model.ErrNotFound if the user does not exist.
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetUserByEmail returns model.ErrNotFound if no user owns the email.
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// SaveEvent durably saves the event.
	SaveEvent(ctx context.Context, event *model.Event) error

	// GetEvent returns model.ErrNotFound if the event does not exist.
	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)

	// LockEvent is GetEvent that also serializes concurrent transactions on the event until the current one ends.
	LockEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)

	// MarkEventCancelled sets the cancelled flag. It returns model.ErrNotFound if the event does not exist.
	MarkEventCancelled(ctx context.Context, id uuid.UUID) error

	// ListEvents lists events matching the query, ordered by id.
	ListEvents(ctx context.Context, query ListEventsQuery) (*ListEventsResult, error)

	// CountRegistrations counts the registrations of each event. Events without registrations are absent from the map.
	CountRegistrations(ctx context.Context, eventIDs ...uuid.UUID) (map[uuid.UUID]int, error)

	// GetRegistration returns model.ErrNotFound if the registration does not exist.
	GetRegistration(ctx context.Context, id uuid.UUID) (*model.Registration, error)

	// FindRegistration returns the registration of the (event, user) pair or model.ErrNotFound.
	FindRegistration(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error)

	// InsertRegistration saves the registration. It returns model.ErrAlreadyRegistered if the pair exists.
	InsertRegistration(ctx context.Context, registration *model.Registration) error

	// InsertRegistrationIfAbsent saves the registration unless the pair exists. It reports whether it inserted.
	InsertRegistrationIfAbsent(ctx context.Context, registration *model.Registration) (bool, error)

	// DeleteRegistration removes the registration. It returns model.ErrNotFound if it does not exist.
	DeleteRegistration(ctx context.Context, id uuid.UUID) error

	// ListRegistrations lists registrations ordered by registration time ascending.
	ListRegistrations(ctx context.Context, query ListRegistrationsQuery) (*ListRegistrationsResult, error)
}

// ListEventsQuery gather the parameters for which the events are listed.
type ListEventsQuery struct {
	// IncludeCancelled also returns cancelled events.
	IncludeCancelled bool

	// OrganizerID filters on the organizer. Zero-value will be ignored as filter.
	OrganizerID uuid.UUID

	// IDs filters on event ids. Zero-value will be ignored as filter.
	IDs []uuid.UUID

	// Limit is the maximum amount of events to return (for pagination). Zero-value will be interpreted as no-limit.
	Limit uint32

	// Offset is the offset to apply (for pagination). Zero-value will be interpreted as 0 Offset.
	Offset uint32
}

// ListEventsResult gathers the result
type ListEventsResult struct {
	Events []model.Event
}

// ListRegistrationsQuery filters registrations. At least one of the fields should be set.
type ListRegistrationsQuery struct {
	// EventID filters on the event. Zero-value will be ignored as filter.
	EventID uuid.UUID

	// UserID filters on the user. Zero-value will be ignored as filter.
	UserID uuid.UUID
}

// ListRegistrationsResult gathers the result
type ListRegistrationsResult struct {
	Registrations []model.Registration
}
