package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
)

// EventServiceArgs contains the mandatory arguments for the EventService.
type EventServiceArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository

	// Ledger seats the organizer of new events.
	Ledger *Ledger
}

// NewEventService creates a new EventService.
func NewEventService(args EventServiceArgs, optArgs ...OptArgs) *EventService {
	o := buildOptionals(optArgs)
	return &EventService{
		repository: args.Repository,
		ledger:     args.Ledger,
		nowFunc:    o.nowFunc,
		informer:   newInformer(o.sender, o.nowFunc),
	}
}

// EventService gathers the functionality around the event-lifecycle
type EventService struct {
	repository ports.Repository
	ledger     *Ledger
	nowFunc    func() time.Time
	informer   *informer
}

// CreateEvent creates an event organized by args.OrganizerID and registers the organizer to it.
// Both writes commit together or not at all.
func (s *EventService) CreateEvent(ctx context.Context, args model.CreateEventArgs) (*model.CreateEventResponse, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:          uuid.New(),
		Location:    args.Location,
		StartsAt:    args.StartsAt.UTC(),
		Capacity:    args.Capacity,
		Description: args.Description,
		OrganizerID: args.OrganizerID,
		CreatedAt:   s.nowFunc(),
	}
	var registration *model.Registration
	err := s.repository.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		if err := q.SaveEvent(ctx, event); err != nil {
			return err
		}
		var err error
		registration, _, err = s.ledger.seatOrganizer(ctx, q, event)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating event: %w", err)
	}

	s.informer.inform(ctx, model.ActivityEventCreated, event.ID, event.OrganizerID, registration.ID)
	return &model.CreateEventResponse{Event: *event, Registration: *registration}, nil
}

// CancelEvent cancels the event. Only the organizer can cancel, and only once. Registrations are kept.
func (s *EventService) CancelEvent(ctx context.Context, args model.CancelEventArgs) error {
	err := s.repository.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		event, err := q.LockEvent(ctx, args.EventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != args.CallerID {
			return model.ErrForbidden
		}
		if event.Cancelled {
			return model.ErrAlreadyCancelled
		}
		return q.MarkEventCancelled(ctx, event.ID)
	})
	if err != nil {
		return fmt.Errorf("error cancelling event [%s]: %w", args.EventID, err)
	}

	s.informer.inform(ctx, model.ActivityEventCancelled, args.EventID, args.CallerID, uuid.Nil)
	return nil
}

// ListActiveEvents lists the non-cancelled events ordered by id, with their available spots.
func (s *EventService) ListActiveEvents(ctx context.Context, args model.ListActiveEventsArgs) (*model.ListEventsResponse, error) {
	res, err := s.repository.ListEvents(ctx, ports.ListEventsQuery{
		Limit:  args.Limit,
		Offset: args.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing events on the repository: %w", err)
	}
	return s.summarize(ctx, res.Events)
}

// ListOrganizedEvents lists the events organized by the user, cancelled ones included.
func (s *EventService) ListOrganizedEvents(ctx context.Context, organizerID uuid.UUID) (*model.ListEventsResponse, error) {
	res, err := s.repository.ListEvents(ctx, ports.ListEventsQuery{
		IncludeCancelled: true,
		OrganizerID:      organizerID,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing events of organizer [%s]: %w", organizerID, err)
	}
	return s.summarize(ctx, res.Events)
}

// GetEvent returns the event with its registration counts. It returns model.ErrNotFound for unknown events.
func (s *EventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*model.EventSummary, error) {
	event, err := s.repository.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("error getting event [%s]: %w", eventID, err)
	}
	counts, err := s.repository.CountRegistrations(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("error counting registrations of event [%s]: %w", eventID, err)
	}
	summary := model.Summarize(*event, counts[event.ID])
	return &summary, nil
}

func (s *EventService) summarize(ctx context.Context, events []model.Event) (*model.ListEventsResponse, error) {
	summaries, err := summarizeEvents(ctx, s.repository, events)
	if err != nil {
		return nil, err
	}
	return &model.ListEventsResponse{Events: summaries}, nil
}

// summarizeEvents annotates the events with their registration counts using a single count query.
func summarizeEvents(ctx context.Context, repository ports.Repository, events []model.Event) ([]model.EventSummary, error) {
	if len(events) == 0 {
		return []model.EventSummary{}, nil
	}
	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	counts, err := repository.CountRegistrations(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("error counting registrations: %w", err)
	}
	summaries := make([]model.EventSummary, len(events))
	for i, e := range events {
		summaries[i] = model.Summarize(e, counts[e.ID])
	}
	return summaries, nil
}
