package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

// IdentityProvider issues and validates opaque bearer credentials.
type IdentityProvider interface {
	// IssueToken issues a credential for the user.
	IssueToken(ctx context.Context, user model.User) (string, error)

	// ResolveToken returns the user id the credential was issued for.
	// It returns model.ErrUnauthenticated if the credential is invalid or expired.
	ResolveToken(ctx context.Context, token string) (uuid.UUID, error)
}
