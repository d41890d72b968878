package model

import "errors"

var (
	// ErrNotFound is returned when an entity is required to exist and does not.
	ErrNotFound = errors.New("entity was not found")

	// ErrForbidden is returned when the caller has no rights over the target entity.
	ErrForbidden = errors.New("caller is not allowed to act on this entity")

	// ErrConflict is matched by every error signaling that the current state disallows the transition.
	ErrConflict = errors.New("state does not allow this transition")

	// ErrInvalidInput is returned for malformed or missing arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEventInPast is returned when a registration is cancelled after the event started.
	ErrEventInPast = errors.New("cannot cancel a registration for a past event")

	// ErrStorage wraps failures of the persistence layer.
	ErrStorage = errors.New("storage failure")

	// ErrUnauthenticated is returned when the caller identity cannot be established.
	ErrUnauthenticated = errors.New("could not validate credentials")
)

var (
	// ErrAlreadyRegistered is returned when the (event, user) pair already has a registration.
	ErrAlreadyRegistered error = &conflictError{reason: "already registered for this event"}

	// ErrEventFull is returned when the event reached its capacity.
	ErrEventFull error = &conflictError{reason: "event is full"}

	// ErrEventCancelled is returned when joining a cancelled event.
	ErrEventCancelled error = &conflictError{reason: "event is cancelled"}

	// ErrAlreadyCancelled is returned when cancelling an event twice.
	ErrAlreadyCancelled error = &conflictError{reason: "event is already cancelled"}

	// ErrEmailTaken is returned on sign-up with an email that already belongs to a user.
	ErrEmailTaken error = &conflictError{reason: "email is already registered"}
)

// conflictError is a specific reason for ErrConflict.
type conflictError struct {
	reason string
}

func (e *conflictError) Error() string {
	return e.reason
}

// Is makes every conflict reason match ErrConflict.
func (e *conflictError) Is(target error) bool {
	return target == ErrConflict
}
