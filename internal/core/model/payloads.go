package model

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinPasswordLength is the minimum accepted password length on sign-up.
const MinPasswordLength = 8

// SignUpArgs contain the arguments of the SignUp method.
type SignUpArgs struct {
	// Email is the user email
	Email string

	// Password is the user password.
	Password string

	// FirstName is the user first name.
	FirstName string

	// LastName is the user last name.
	LastName string

	// BirthDate is the user date of birth.
	BirthDate time.Time

	// Sex is the user sex.
	Sex Sex

	// SkillLevel is the user playing level.
	SkillLevel SkillLevel
}

// Validate returns ErrInvalidInput if a mandatory field is missing or malformed.
func (a SignUpArgs) Validate() error {
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(a.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if strings.TrimSpace(a.FirstName) == "" || strings.TrimSpace(a.LastName) == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	if a.BirthDate.IsZero() {
		return fmt.Errorf("%w: birth date is required", ErrInvalidInput)
	}
	if !a.Sex.Valid() {
		return fmt.Errorf("%w: unknown sex %q", ErrInvalidInput, a.Sex)
	}
	if !a.SkillLevel.Valid() {
		return fmt.Errorf("%w: unknown skill level %q", ErrInvalidInput, a.SkillLevel)
	}
	return nil
}

// SignUpResponse contains the response of the SignUp method.
type SignUpResponse struct {
	// User
	User User
}

// LoginArgs contain the credentials of the Login method.
type LoginArgs struct {
	Email    string
	Password string
}

// LoginResponse contains the issued bearer token.
type LoginResponse struct {
	// Token is the opaque bearer credential.
	Token string

	// User is the authenticated user.
	User User
}

// UpdateProfileArgs contain the arguments of the UpdateProfile method. Zero-values are ignored.
type UpdateProfileArgs struct {
	// UserID is the caller. Users can only update their own profile.
	UserID uuid.UUID

	FirstName  string
	LastName   string
	BirthDate  time.Time
	Sex        Sex
	SkillLevel SkillLevel
}

// Validate returns ErrInvalidInput for unknown enumerations.
func (a UpdateProfileArgs) Validate() error {
	if a.Sex != "" && !a.Sex.Valid() {
		return fmt.Errorf("%w: unknown sex %q", ErrInvalidInput, a.Sex)
	}
	if a.SkillLevel != "" && !a.SkillLevel.Valid() {
		return fmt.Errorf("%w: unknown skill level %q", ErrInvalidInput, a.SkillLevel)
	}
	return nil
}

// ProfileResponse contains a user profile.
type ProfileResponse struct {
	User User
}

// SetAvatarArgs contain the profile image to store.
type SetAvatarArgs struct {
	// UserID is the owner of the image.
	UserID uuid.UUID

	// Filename is the original file name.
	Filename string

	// ContentType is the media type of the image.
	ContentType string

	// Content is the image body.
	Content io.Reader
}

// Avatar is a stored profile image. Content must be closed by the caller.
type Avatar struct {
	ContentType string
	Size        int64
	Content     io.ReadCloser
}

// CreateEventArgs contain the arguments of the CreateEvent method.
type CreateEventArgs struct {
	// OrganizerID is the caller. It becomes the organizer of the event.
	OrganizerID uuid.UUID

	// Location of the event.
	Location Location

	// StartsAt is the date and time of the event.
	StartsAt time.Time

	// Capacity is the maximum amount of registrations. Nil means unlimited.
	Capacity *int

	// Description is optional.
	Description string
}

// Validate returns ErrInvalidInput if the event details are malformed.
func (a CreateEventArgs) Validate() error {
	if a.OrganizerID == uuid.Nil {
		return fmt.Errorf("%w: organizer is required", ErrInvalidInput)
	}
	if strings.TrimSpace(a.Location.Name) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if a.Location.Latitude < -90 || a.Location.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidInput)
	}
	if a.Location.Longitude < -180 || a.Location.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidInput)
	}
	if a.StartsAt.IsZero() {
		return fmt.Errorf("%w: event date and time are required", ErrInvalidInput)
	}
	if a.Capacity != nil && *a.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be a positive integer", ErrInvalidInput)
	}
	return nil
}

// CreateEventResponse contains the created event and the organizer registration.
type CreateEventResponse struct {
	Event        Event
	Registration Registration
}

// CancelEventArgs contain the arguments of the CancelEvent method.
type CancelEventArgs struct {
	EventID  uuid.UUID
	CallerID uuid.UUID
}

// ListActiveEventsArgs contain the pagination of the ListActiveEvents use-case.
type ListActiveEventsArgs struct {
	// Limit is the maximum amount of events to return. Zero-value will be interpreted as no-limit.
	Limit uint32

	// Offset is the offset to apply. Zero-value will be interpreted as 0 Offset.
	Offset uint32
}

// ListEventsResponse contains events annotated with their registration counts.
type ListEventsResponse struct {
	Events []EventSummary
}

// RegisterArgs identify the (event, user) pair of a join or withdrawal.
type RegisterArgs struct {
	EventID uuid.UUID
	UserID  uuid.UUID
}

// RegisterResponse contains the created registration.
type RegisterResponse struct {
	Registration Registration
}

// SeatOrganizerResponse contains the organizer registration and whether it was created by the call.
type SeatOrganizerResponse struct {
	Registration Registration
	Created      bool
}

// CancelRegistrationArgs contain the arguments of the CancelRegistration method.
type CancelRegistrationArgs struct {
	RegistrationID uuid.UUID
	CallerID       uuid.UUID
}

// ListRegistrationsResponse contains registrations ordered by registration time.
type ListRegistrationsResponse struct {
	Registrations []Registration
}

// UserRegistration is a registration of the user along with the event it belongs to.
type UserRegistration struct {
	Registration

	Event EventSummary `json:"event"`
}

// ListUserRegistrationsResponse contains the registrations of a user ordered by registration time.
type ListUserRegistrationsResponse struct {
	Registrations []UserRegistration
}

// AuditArgs contain the arguments of an auditor run.
type AuditArgs struct {
	// DryRun reports drift without repairing it.
	DryRun bool
}
