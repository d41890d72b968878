package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// newInformer builds a new informer. A nil sender disables publishing.
func newInformer(sender ports.Sender, nowFunc func() time.Time) *informer {
	return &informer{sender: sender, nowFunc: nowFunc}
}

// informer publicly 'informs' about committed changes to events and registrations.
// Delivery is best effort: the change is already durable when inform is called.
type informer struct {
	sender  ports.Sender
	nowFunc func() time.Time
}

func (i *informer) inform(ctx context.Context, kind model.ActivityKind, eventID, userID, registrationID uuid.UUID) {
	if i.sender == nil {
		return
	}
	activity := model.Activity{
		ID:             uuid.New(),
		Kind:           kind,
		EventID:        eventID,
		UserID:         userID,
		RegistrationID: registrationID,
		OccurredAt:     i.nowFunc(),
	}
	if err := i.sender.Send(ctx, activity); err != nil {
		log.WithError(err).
			WithField("activity-id", activity.ID).
			WithField("kind", kind).
			WithField("event-id", eventID).
			Warn("error sending activity")
	}
}
