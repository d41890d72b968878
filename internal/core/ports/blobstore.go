package ports

import (
	"context"
	"io"

	"github.com/rbroggi/racketbuddy/internal/core/model"
)

// BlobStore stores profile images.
type BlobStore interface {
	// Put stores the content and returns a reference to it.
	Put(ctx context.Context, filename, contentType string, content io.Reader) (string, error)

	// Get opens the referenced blob. It returns model.ErrNotFound if the reference is unknown.
	Get(ctx context.Context, ref string) (*model.Avatar, error)

	// Delete removes the referenced blob. Unknown references are not an error.
	Delete(ctx context.Context, ref string) error
}
