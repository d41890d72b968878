package ports

import (
	"context"

	"github.com/rbroggi/racketbuddy/internal/core/model"
)

// AuditRequestHandler handles incoming AuditRequests.
type AuditRequestHandler interface {
	// Handle will receive an incoming audit request and handle it.
	Handle(ctx context.Context, request model.AuditRequest) error
}
