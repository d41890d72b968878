package model

import (
	"time"

	"github.com/google/uuid"
)

// Sex of a user.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

// Valid reports whether s is a known value.
func (s Sex) Valid() bool {
	switch s {
	case SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// SkillLevel is the self-declared playing level of a user.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillProfessional SkillLevel = "professional"
)

// Valid reports whether l is a known value.
func (l SkillLevel) Valid() bool {
	switch l {
	case SkillBeginner, SkillIntermediate, SkillAdvanced, SkillProfessional:
		return true
	}
	return false
}

// User represents a user in the system.
type User struct {
	// ID unique identifier of the user.
	ID uuid.UUID `json:"id"`

	// Email is the user email. Unique across users.
	Email string `json:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `json:"-"`

	// FirstName is the user first name.
	FirstName string `json:"first_name"`

	// LastName is the user last name.
	LastName string `json:"last_name"`

	// BirthDate is the user date of birth.
	BirthDate time.Time `json:"birth_date"`

	// Sex is the user sex.
	Sex Sex `json:"sex"`

	// SkillLevel is the user playing level.
	SkillLevel SkillLevel `json:"skill_level"`

	// AvatarRef references the profile image in the blob store. Empty when the user has none.
	AvatarRef string `json:"avatar_ref,omitempty"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Location is where an event takes place.
type Location struct {
	// Name is the free text description of the place (court, park, address).
	Name string `json:"name"`

	// Latitude in decimal degrees.
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees.
	Longitude float64 `json:"longitude"`
}

// Event is a meetup posted by an organizer.
type Event struct {
	// ID unique identifier of the event.
	ID uuid.UUID `json:"id"`

	// Location of the event.
	Location Location `json:"location"`

	// StartsAt is the date and time of the event as an absolute instant.
	StartsAt time.Time `json:"starts_at"`

	// Capacity is the maximum number of registrations. Nil means unlimited.
	Capacity *int `json:"capacity"`

	// Description is an optional free text.
	Description string `json:"description,omitempty"`

	// Cancelled is set once by the organizer and never reverted.
	Cancelled bool `json:"cancelled"`

	// OrganizerID is the user that created the event.
	OrganizerID uuid.UUID `json:"organizer_id"`

	// CreatedAt is the time at which the event was created.
	CreatedAt time.Time `json:"created_at"`
}

// Capped reports whether the event declares a finite capacity.
func (e Event) Capped() bool {
	return e.Capacity != nil
}

// EventSummary is an event annotated with its registration counts.
type EventSummary struct {
	Event

	// Registered is the number of active registrations.
	Registered int `json:"registered"`

	// AvailableSpots is Capacity minus Registered. Nil for uncapped events.
	AvailableSpots *int `json:"available_spots"`
}

// Summarize annotates the event with the amount of active registrations.
func Summarize(event Event, registered int) EventSummary {
	s := EventSummary{Event: event, Registered: registered}
	if event.Capacity != nil {
		spots := *event.Capacity - registered
		if spots < 0 {
			spots = 0
		}
		s.AvailableSpots = &spots
	}
	return s
}

// Registration attaches a user to an event.
type Registration struct {
	// ID unique identifier of the registration.
	ID uuid.UUID `json:"id"`

	// EventID is the event the user joined.
	EventID uuid.UUID `json:"event_id"`

	// UserID is the registered user.
	UserID uuid.UUID `json:"user_id"`

	// RegisteredAt is the time of the registration.
	RegisteredAt time.Time `json:"registered_at"`
}

// ActivityKind names a committed state change.
type ActivityKind string

const (
	ActivityEventCreated         ActivityKind = "event.created"
	ActivityEventCancelled       ActivityKind = "event.cancelled"
	ActivityRegistrationCreated  ActivityKind = "registration.created"
	ActivityRegistrationRemoved  ActivityKind = "registration.removed"
	ActivityRegistrationRepaired ActivityKind = "registration.repaired"
)

// Activity collects a committed change to events or registrations. It is published to interested consumers.
type Activity struct {
	// ID is the activity id.
	ID uuid.UUID `json:"id"`

	// Kind of change.
	Kind ActivityKind `json:"kind"`

	// EventID is the affected event.
	EventID uuid.UUID `json:"event_id"`

	// UserID is the user that caused the change (or the organizer for repairs).
	UserID uuid.UUID `json:"user_id"`

	// RegistrationID is the affected registration. Zero-valued for event level changes.
	RegistrationID uuid.UUID `json:"registration_id,omitempty"`

	// OccurredAt is the commit time.
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditOutcome is the result of auditing one event.
type AuditOutcome string

const (
	// AuditConsistent means the organizer registration exists.
	AuditConsistent AuditOutcome = "consistent"

	// AuditRepaired means the organizer registration was missing and got inserted.
	AuditRepaired AuditOutcome = "repaired"

	// AuditMissing means the organizer registration is missing and nothing was written (dry-run).
	AuditMissing AuditOutcome = "missing"

	// AuditBlockedFull means the organizer registration is missing but the event is at capacity.
	AuditBlockedFull AuditOutcome = "blocked_full"
)

// AuditFinding is the audit result for one event.
type AuditFinding struct {
	EventID     uuid.UUID    `json:"event_id"`
	OrganizerID uuid.UUID    `json:"organizer_id"`
	Outcome     AuditOutcome `json:"outcome"`
}

// AuditReport is the result of one Consistency Auditor run.
type AuditReport struct {
	// DryRun is true when no repair was attempted.
	DryRun bool `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Scanned is the amount of events inspected.
	Scanned int `json:"scanned"`

	// Repaired is the amount of organizer registrations inserted.
	Repaired int `json:"repaired"`

	// Findings has one entry per scanned event.
	Findings []AuditFinding `json:"findings"`
}

// AuditRequest asks for an auditor run.
type AuditRequest struct {
	// ID identifies the request (message id for async triggers).
	ID string

	// DryRun reports drift without repairing it.
	DryRun bool
}
