package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// UserServiceArgs contains the mandatory arguments for the UserService.
type UserServiceArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository

	// Identity issues and validates bearer credentials.
	Identity ports.IdentityProvider

	// Avatars stores profile images.
	Avatars ports.BlobStore
}

// NewUserService creates a new UserService.
func NewUserService(args UserServiceArgs, optArgs ...OptArgs) *UserService {
	o := buildOptionals(optArgs)
	return &UserService{
		repository: args.Repository,
		identity:   args.Identity,
		avatars:    args.Avatars,
		nowFunc:    o.nowFunc,
	}
}

// UserService gathers the functionality around the user-lifecycle
type UserService struct {
	repository ports.Repository
	identity   ports.IdentityProvider
	avatars    ports.BlobStore
	nowFunc    func() time.Time
}

// SignUp creates a user.
func (s *UserService) SignUp(ctx context.Context, args model.SignUpArgs) (*model.SignUpResponse, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	// CreateHash returns a Argon2id hash of a plain-text password using the
	// provided algorithm parameters. The returned hash follows the format used
	// by the Argon2 reference C implementation and looks like this:
	// $argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$RdescudvJCsgt3ub+b+dWRWJTmaaJObG
	hash, err := argon2id.CreateHash(args.Password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("error creating password hash: %w", err)
	}

	now := s.nowFunc()
	user := &model.User{
		ID:           uuid.New(),
		Email:        normalizeEmail(args.Email),
		PasswordHash: hash,
		FirstName:    args.FirstName,
		LastName:     args.LastName,
		BirthDate:    args.BirthDate.UTC(),
		Sex:          args.Sex,
		SkillLevel:   args.SkillLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repository.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error saving user in repository: %w", err)
	}

	return &model.SignUpResponse{User: *user}, nil
}

// Login checks the credentials and issues a bearer token. It returns model.ErrUnauthenticated on mismatch.
func (s *UserService) Login(ctx context.Context, args model.LoginArgs) (*model.LoginResponse, error) {
	user, err := s.repository.GetUserByEmail(ctx, normalizeEmail(args.Email))
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrUnauthenticated
	} else if err != nil {
		return nil, fmt.Errorf("error getting user by email: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(args.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error comparing password hash: %w", err)
	}
	if !match {
		return nil, model.ErrUnauthenticated
	}

	token, err := s.identity.IssueToken(ctx, *user)
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &model.LoginResponse{Token: token, User: *user}, nil
}

// ResolveCaller returns the id of the user owning the bearer token.
// It returns model.ErrUnauthenticated if the token is invalid or its user does not exist.
func (s *UserService) ResolveCaller(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, model.ErrUnauthenticated
	}
	userID, err := s.identity.ResolveToken(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.repository.GetUser(ctx, userID); errors.Is(err, model.ErrNotFound) {
		return uuid.Nil, model.ErrUnauthenticated
	} else if err != nil {
		return uuid.Nil, fmt.Errorf("error getting caller: %w", err)
	}
	return userID, nil
}

// GetProfile returns the user. It returns model.ErrNotFound if the ID does not correspond to an existing user.
func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.ProfileResponse, error) {
	user, err := s.repository.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user [%s]: %w", userID, err)
	}
	return &model.ProfileResponse{User: *user}, nil
}

// UpdateProfile updates the caller profile. It returns model.ErrNotFound if the ID does not correspond to an existing user.
func (s *UserService) UpdateProfile(ctx context.Context, args model.UpdateProfileArgs) (*model.ProfileResponse, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	user := &model.User{
		ID:         args.UserID,
		FirstName:  args.FirstName,
		LastName:   args.LastName,
		BirthDate:  args.BirthDate,
		Sex:        args.Sex,
		SkillLevel: args.SkillLevel,
		UpdatedAt:  s.nowFunc(),
	}
	if err := s.repository.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return s.GetProfile(ctx, args.UserID)
}

// SetAvatar stores a new profile image for the user and drops the one it replaced.
func (s *UserService) SetAvatar(ctx context.Context, args model.SetAvatarArgs) (*model.ProfileResponse, error) {
	if args.Content == nil {
		return nil, fmt.Errorf("%w: profile image is required", model.ErrInvalidInput)
	}
	if _, err := s.repository.GetUser(ctx, args.UserID); err != nil {
		return nil, fmt.Errorf("error getting user [%s]: %w", args.UserID, err)
	}

	ref, err := s.avatars.Put(ctx, args.Filename, args.ContentType, args.Content)
	if err != nil {
		return nil, fmt.Errorf("error storing profile image: %w", err)
	}

	// previous is read under the row lock of the swap
	previous, err := s.repository.ReplaceAvatar(ctx, args.UserID, ref, s.nowFunc())
	if err != nil {
		if delErr := s.avatars.Delete(ctx, ref); delErr != nil {
			log.WithError(delErr).WithField("ref", ref).Warn("error deleting orphan profile image")
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	if previous != "" {
		if err := s.avatars.Delete(ctx, previous); err != nil {
			log.WithError(err).WithField("ref", previous).Warn("error deleting previous profile image")
		}
	}
	return s.GetProfile(ctx, args.UserID)
}

// GetAvatar opens the profile image of the user. It returns model.ErrNotFound if the user has none.
func (s *UserService) GetAvatar(ctx context.Context, userID uuid.UUID) (*model.Avatar, error) {
	user, err := s.repository.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user [%s]: %w", userID, err)
	}
	if user.AvatarRef == "" {
		return nil, fmt.Errorf("user [%s] has no profile image: %w", userID, model.ErrNotFound)
	}
	avatar, err := s.avatars.Get(ctx, user.AvatarRef)
	if err != nil {
		return nil, fmt.Errorf("error opening profile image: %w", err)
	}
	return avatar, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
