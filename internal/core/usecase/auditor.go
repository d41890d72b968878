package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// AuditorArgs contains the mandatory arguments for the Auditor.
type AuditorArgs struct {
	// Repository is the repository for persistance operations.
	Repository ports.Repository

	// Ledger repairs missing organizer registrations.
	Ledger *Ledger
}

// NewAuditor creates a new Auditor.
func NewAuditor(args AuditorArgs, optArgs ...OptArgs) *Auditor {
	o := buildOptionals(optArgs)
	return &Auditor{
		repository: args.Repository,
		ledger:     args.Ledger,
		nowFunc:    o.nowFunc,
	}
}

// Auditor scans every event and seats organizers that lost their registration.
// Runs are idempotent and can overlap with live traffic: repairs go through the Ledger.
type Auditor struct {
	repository ports.Repository
	ledger     *Ledger
	nowFunc    func() time.Time
}

// Run audits all the events. It only fails on storage errors; drift is reported in the findings.
func (a *Auditor) Run(ctx context.Context, args model.AuditArgs) (*model.AuditReport, error) {
	report := &model.AuditReport{
		DryRun:    args.DryRun,
		StartedAt: a.nowFunc(),
		Findings:  []model.AuditFinding{},
	}

	res, err := a.repository.ListEvents(ctx, ports.ListEventsQuery{IncludeCancelled: true})
	if err != nil {
		return nil, fmt.Errorf("error listing events to audit: %w", err)
	}

	for i := range res.Events {
		event := &res.Events[i]
		finding, err := a.auditEvent(ctx, event, args.DryRun)
		if err != nil {
			return nil, fmt.Errorf("error auditing event [%s]: %w", event.ID, err)
		}
		report.Scanned++
		if finding.Outcome == model.AuditRepaired {
			report.Repaired++
		}
		report.Findings = append(report.Findings, finding)

		entry := log.WithField("event-id", event.ID).WithField("organizer-id", event.OrganizerID)
		switch finding.Outcome {
		case model.AuditConsistent:
			entry.Debug("event already has organizer registration")
		case model.AuditRepaired:
			entry.Info("created missing organizer registration")
		case model.AuditMissing:
			entry.Warn("organizer registration is missing")
		case model.AuditBlockedFull:
			entry.Warn("organizer registration is missing but the event is full")
		}
	}

	report.FinishedAt = a.nowFunc()
	return report, nil
}

// Handle runs the auditor for an asynchronous audit request.
func (a *Auditor) Handle(ctx context.Context, request model.AuditRequest) error {
	report, err := a.Run(ctx, model.AuditArgs{DryRun: request.DryRun})
	if err != nil {
		return fmt.Errorf("error handling audit request [%s]: %w", request.ID, err)
	}
	log.WithField("request-id", request.ID).
		WithField("dry-run", report.DryRun).
		WithField("scanned", report.Scanned).
		WithField("repaired", report.Repaired).
		Info("audit completed")
	return nil
}

func (a *Auditor) auditEvent(ctx context.Context, event *model.Event, dryRun bool) (model.AuditFinding, error) {
	finding := model.AuditFinding{EventID: event.ID, OrganizerID: event.OrganizerID, Outcome: model.AuditConsistent}

	_, err := a.repository.FindRegistration(ctx, event.ID, event.OrganizerID)
	if err == nil {
		return finding, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return finding, err
	}
	if dryRun {
		finding.Outcome = model.AuditMissing
		return finding, nil
	}

	res, err := a.ledger.SeatOrganizer(ctx, event.ID, event.OrganizerID)
	switch {
	case errors.Is(err, model.ErrEventFull):
		finding.Outcome = model.AuditBlockedFull
		return finding, nil
	case err != nil:
		return finding, err
	}
	if res.Created {
		finding.Outcome = model.AuditRepaired
	}
	return finding, nil
}
