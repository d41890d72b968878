package rest

import (
	"context"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

// usersUsecase
type usersUsecase interface {
	// SignUp creates a user.
	SignUp(ctx context.Context, args model.SignUpArgs) (*model.SignUpResponse, error)

	// Login checks the credentials and issues a bearer token.
	Login(ctx context.Context, args model.LoginArgs) (*model.LoginResponse, error)

	// ResolveCaller returns the id of the user owning the bearer token.
	ResolveCaller(ctx context.Context, token string) (uuid.UUID, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (*model.ProfileResponse, error)
	UpdateProfile(ctx context.Context, args model.UpdateProfileArgs) (*model.ProfileResponse, error)
	SetAvatar(ctx context.Context, args model.SetAvatarArgs) (*model.ProfileResponse, error)
	GetAvatar(ctx context.Context, userID uuid.UUID) (*model.Avatar, error)
}

// eventsUsecase
type eventsUsecase interface {
	CreateEvent(ctx context.Context, args model.CreateEventArgs) (*model.CreateEventResponse, error)
	CancelEvent(ctx context.Context, args model.CancelEventArgs) error
	ListActiveEvents(ctx context.Context, args model.ListActiveEventsArgs) (*model.ListEventsResponse, error)
	ListOrganizedEvents(ctx context.Context, organizerID uuid.UUID) (*model.ListEventsResponse, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (*model.EventSummary, error)
}

// ledgerUsecase
type ledgerUsecase interface {
	Register(ctx context.Context, args model.RegisterArgs) (*model.RegisterResponse, error)
	Withdraw(ctx context.Context, args model.RegisterArgs) error
	CancelRegistration(ctx context.Context, args model.CancelRegistrationArgs) error
	ListForEvent(ctx context.Context, eventID uuid.UUID) (*model.ListRegistrationsResponse, error)
	ListForUser(ctx context.Context, userID uuid.UUID) (*model.ListUserRegistrationsResponse, error)
}

// joinQuota counts joins per user.
type joinQuota interface {
	Take(ctx context.Context, userID uuid.UUID) (used int64, allowed bool, err error)
	Refund(ctx context.Context, userID uuid.UUID) error
	Limit() int64
}
