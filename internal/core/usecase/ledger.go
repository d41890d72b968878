package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
)

// LedgerArgs contains the mandatory arguments for the Ledger.
type LedgerArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository
}

// NewLedger creates a new Ledger.
func NewLedger(args LedgerArgs, optArgs ...OptArgs) *Ledger {
	o := buildOptionals(optArgs)
	return &Ledger{
		repository: args.Repository,
		nowFunc:    o.nowFunc,
		informer:   newInformer(o.sender, o.nowFunc),
	}
}

// Ledger owns the registrations of events. It is the only writer of registrations and enforces
// the uniqueness, capacity and organizer invariants.
//
// Every check-then-insert runs in one transaction that first locks the event row, so two
// concurrent joins on the same event are serialized and cannot both take the last spot.
type Ledger struct {
	repository ports.Repository
	nowFunc    func() time.Time
	informer   *informer
}

// Register joins the user to the event.
func (l *Ledger) Register(ctx context.Context, args model.RegisterArgs) (*model.RegisterResponse, error) {
	var registration *model.Registration
	err := l.repository.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		event, err := q.LockEvent(ctx, args.EventID)
		if err != nil {
			return err
		}
		if event.Cancelled {
			return model.ErrEventCancelled
		}
		if _, err := q.FindRegistration(ctx, event.ID, args.UserID); err == nil {
			return model.ErrAlreadyRegistered
		} else if !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if err := l.checkCapacity(ctx, q, event); err != nil {
			return err
		}
		registration = l.newRegistration(event.ID, args.UserID)
		return q.InsertRegistration(ctx, registration)
	})
	if err != nil {
		return nil, fmt.Errorf("error registering user [%s] to event [%s]: %w", args.UserID, args.EventID, err)
	}

	l.informer.inform(ctx, model.ActivityRegistrationCreated, registration.EventID, registration.UserID, registration.ID)
	return &model.RegisterResponse{Registration: *registration}, nil
}

// Withdraw removes the registration of the (event, user) pair. The organizer may withdraw too; the event stays.
func (l *Ledger) Withdraw(ctx context.Context, args model.RegisterArgs) error {
	var registration *model.Registration
	err := l.repository.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		var err error
		registration, err = q.FindRegistration(ctx, args.EventID, args.UserID)
		if err != nil {
			return err
		}
		return q.DeleteRegistration(ctx, registration.ID)
	})
	if err != nil {
		return fmt.Errorf("error withdrawing user [%s] from event [%s]: %w", args.UserID, args.EventID, err)
	}

	l.informer.inform(ctx, model.ActivityRegistrationRemoved, registration.EventID, registration.UserID, registration.ID)
	return nil
}

// CancelRegistration removes a registration owned by the caller, as long as the event has not started.
func (l *Ledger) CancelRegistration(ctx context.Context, args model.CancelRegistrationArgs) error {
	var registration *model.Registration
	err := l.repository.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		var err error
		registration, err = q.GetRegistration(ctx, args.RegistrationID)
		if err != nil {
			return err
		}
		if registration.UserID != args.CallerID {
			return model.ErrForbidden
		}
		event, err := q.GetEvent(ctx, registration.EventID)
		if err != nil {
			return err
		}
		if event.StartsAt.Before(l.nowFunc()) {
			return model.ErrEventInPast
		}
		return q.DeleteRegistration(ctx, registration.ID)
	})
	if err != nil {
		return fmt.Errorf("error cancelling registration [%s]: %w", args.RegistrationID, err)
	}

	l.informer.inform(ctx, model.ActivityRegistrationRemoved, registration.EventID, registration.UserID, registration.ID)
	return nil
}

// ListForEvent lists the registrations of the event. It returns model.ErrNotFound for unknown events.
func (l *Ledger) ListForEvent(ctx context.Context, eventID uuid.UUID) (*model.ListRegistrationsResponse, error) {
	if _, err := l.repository.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("error getting event [%s]: %w", eventID, err)
	}
	res, err := l.repository.ListRegistrations(ctx, ports.ListRegistrationsQuery{EventID: eventID})
	if err != nil {
		return nil, fmt.Errorf("error listing registrations of event [%s]: %w", eventID, err)
	}
	return &model.ListRegistrationsResponse{Registrations: res.Registrations}, nil
}

// ListForUser lists the registrations of the user, each with its event and the spots still available.
// Registrations to cancelled events are listed too.
func (l *Ledger) ListForUser(ctx context.Context, userID uuid.UUID) (*model.ListUserRegistrationsResponse, error) {
	res, err := l.repository.ListRegistrations(ctx, ports.ListRegistrationsQuery{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("error listing registrations of user [%s]: %w", userID, err)
	}
	if len(res.Registrations) == 0 {
		return &model.ListUserRegistrationsResponse{Registrations: []model.UserRegistration{}}, nil
	}

	ids := make([]uuid.UUID, len(res.Registrations))
	for i, r := range res.Registrations {
		ids[i] = r.EventID
	}
	events, err := l.repository.ListEvents(ctx, ports.ListEventsQuery{IDs: ids, IncludeCancelled: true})
	if err != nil {
		return nil, fmt.Errorf("error listing events of user [%s]: %w", userID, err)
	}
	summaries, err := summarizeEvents(ctx, l.repository, events.Events)
	if err != nil {
		return nil, fmt.Errorf("error summarizing events of user [%s]: %w", userID, err)
	}
	byID := make(map[uuid.UUID]model.EventSummary, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = s
	}

	registrations := make([]model.UserRegistration, 0, len(res.Registrations))
	for _, r := range res.Registrations {
		event, ok := byID[r.EventID]
		if !ok {
			// registrations reference events by foreign key and events are never deleted
			continue
		}
		registrations = append(registrations, model.UserRegistration{Registration: r, Event: event})
	}
	return &model.ListUserRegistrationsResponse{Registrations: registrations}, nil
}

// SeatOrganizer makes sure the organizer of the event is registered to it. It is a no-op if it already is.
func (l *Ledger) SeatOrganizer(ctx context.Context, eventID, organizerID uuid.UUID) (*model.SeatOrganizerResponse, error) {
	var (
		registration *model.Registration
		created      bool
	)
	err := l.repository.RunInTx(ctx, func(ctx context.Context, q ports.Queries) error {
		event, err := q.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != organizerID {
			return fmt.Errorf("%w: user [%s] does not organize event [%s]", model.ErrInvalidInput, organizerID, eventID)
		}
		registration, created, err = l.seatOrganizer(ctx, q, event)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error seating organizer of event [%s]: %w", eventID, err)
	}

	if created {
		l.informer.inform(ctx, model.ActivityRegistrationRepaired, eventID, organizerID, registration.ID)
	}
	return &model.SeatOrganizerResponse{Registration: *registration, Created: created}, nil
}

// seatOrganizer inserts the organizer registration within the caller's transaction. The event must be
// locked (or created) by the same transaction.
func (l *Ledger) seatOrganizer(ctx context.Context, q ports.Queries, event *model.Event) (*model.Registration, bool, error) {
	existing, err := q.FindRegistration(ctx, event.ID, event.OrganizerID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, err
	}
	if err := l.checkCapacity(ctx, q, event); err != nil {
		return nil, false, err
	}

	registration := l.newRegistration(event.ID, event.OrganizerID)
	inserted, err := q.InsertRegistrationIfAbsent(ctx, registration)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		existing, err := q.FindRegistration(ctx, event.ID, event.OrganizerID)
		return existing, false, err
	}
	return registration, true, nil
}

func (l *Ledger) checkCapacity(ctx context.Context, q ports.Queries, event *model.Event) error {
	if !event.Capped() {
		return nil
	}
	counts, err := q.CountRegistrations(ctx, event.ID)
	if err != nil {
		return err
	}
	if counts[event.ID] >= *event.Capacity {
		return model.ErrEventFull
	}
	return nil
}

func (l *Ledger) newRegistration(eventID, userID uuid.UUID) *model.Registration {
	return &model.Registration{
		ID:           uuid.New(),
		EventID:      eventID,
		UserID:       userID,
		RegisteredAt: l.nowFunc(),
	}
}
