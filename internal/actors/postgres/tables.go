package postgres

import (
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

type userDB struct {
	tableName struct{} `pg:"racketbuddy.users"`

	// ID unique identifier of the user.
	ID uuid.UUID `pg:"id,pk,type:uuid"`

	// Email is the user email
	Email string `pg:"email"`

	// PasswordHash contains the password hash.
	PasswordHash string `pg:"password_hash"`

	// FirstName is the user first name.
	FirstName string `pg:"first_name"`

	// LastName is the user last name.
	LastName string `pg:"last_name"`

	// BirthDate is stored as a date.
	BirthDate time.Time `pg:"birth_date,type:date"`

	Sex        string `pg:"sex"`
	SkillLevel string `pg:"skill_level"`

	// AvatarRef is NULL when the user has no profile image.
	AvatarRef string `pg:"avatar_ref"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `pg:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `pg:"updated_at"`
}

type eventDB struct {
	tableName struct{} `pg:"racketbuddy.events"`

	ID          uuid.UUID `pg:"id,pk,type:uuid"`
	Location    string    `pg:"location"`
	Latitude    float64   `pg:"latitude,use_zero"`
	Longitude   float64   `pg:"longitude,use_zero"`
	StartsAt    time.Time `pg:"starts_at"`
	Capacity    *int      `pg:"capacity"`
	Description string    `pg:"description"`
	Cancelled   bool      `pg:"cancelled,use_zero"`
	OrganizerID uuid.UUID `pg:"organizer_id,type:uuid"`
	CreatedAt   time.Time `pg:"created_at"`
}

type registrationDB struct {
	tableName struct{} `pg:"racketbuddy.registrations"`

	ID           uuid.UUID `pg:"id,pk,type:uuid"`
	EventID      uuid.UUID `pg:"event_id,type:uuid"`
	UserID       uuid.UUID `pg:"user_id,type:uuid"`
	RegisteredAt time.Time `pg:"registered_at"`
}

func toUserDB(user *model.User) *userDB {
	return &userDB{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		BirthDate:    user.BirthDate.UTC(),
		Sex:          string(user.Sex),
		SkillLevel:   string(user.SkillLevel),
		AvatarRef:    user.AvatarRef,
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}
}

func (u userDB) toModel() model.User {
	return model.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		BirthDate:    u.BirthDate.UTC(),
		Sex:          model.Sex(u.Sex),
		SkillLevel:   model.SkillLevel(u.SkillLevel),
		AvatarRef:    u.AvatarRef,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func toEventDB(event *model.Event) *eventDB {
	return &eventDB{
		ID:          event.ID,
		Location:    event.Location.Name,
		Latitude:    event.Location.Latitude,
		Longitude:   event.Location.Longitude,
		StartsAt:    event.StartsAt.UTC(),
		Capacity:    event.Capacity,
		Description: event.Description,
		Cancelled:   event.Cancelled,
		OrganizerID: event.OrganizerID,
		CreatedAt:   event.CreatedAt.UTC(),
	}
}

func (e eventDB) toModel() model.Event {
	return model.Event{
		ID: e.ID,
		Location: model.Location{
			Name:      e.Location,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
		},
		StartsAt:    e.StartsAt.UTC(),
		Capacity:    e.Capacity,
		Description: e.Description,
		Cancelled:   e.Cancelled,
		OrganizerID: e.OrganizerID,
		CreatedAt:   e.CreatedAt.UTC(),
	}
}

func toRegistrationDB(r *model.Registration) *registrationDB {
	return &registrationDB{
		ID:           r.ID,
		EventID:      r.EventID,
		UserID:       r.UserID,
		RegisteredAt: r.RegisteredAt.UTC(),
	}
}

func (r registrationDB) toModel() model.Registration {
	return model.Registration{
		ID:           r.ID,
		EventID:      r.EventID,
		UserID:       r.UserID,
		RegisteredAt: r.RegisteredAt.UTC(),
	}
}
