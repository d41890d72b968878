package ports

import (
	"context"

	"github.com/rbroggi/racketbuddy/internal/core/model"
)

// Sender is the port for publishing/informing/sending outbound activities.
type Sender interface {
	// Send sends activity data.
	Send(ctx context.Context, activity model.Activity) error
}
