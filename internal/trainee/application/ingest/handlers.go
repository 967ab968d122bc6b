// Package ingest implements the Event Ingest Orchestrator (C8): one thin
// handler per domain-event kind, translating a deserialised event into
// calls on the rules engine (C5) and then into in-app rows (C9) or
// scheduled jobs (C6).
package ingest

import (
	"context"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/inapp"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain/rules"
)

// Handlers wires the repositories and rules configuration every event-kind
// handler needs. Each exported method corresponds to one row of §4.8's
// table.
type Handlers struct {
	Histories domain.HistoryRepository
	Jobs      domain.JobRepository
	InApp     *inapp.Notifier
	Contacts  ports.ContactDirectory
	Clock     ports.Clock
	Config    rules.Config
}

// schedule materialises a Plan into a SCHEDULED History row plus a durable
// ScheduledJob, or an immediate in-app row when the plan says Immediate,
// skipping re-creation when an identical job/history pair already exists
// (idempotence required by §4.8 and the jobId-uniqueness invariant).
func (h *Handlers) schedule(ctx context.Context, personID string, plan rules.Plan) error {
	if plan.Type.IsInApp() && plan.Immediate {
		tmpl := domain.TemplateBinding{Name: plan.Type.TemplateName(), Version: "v1", Variables: plan.Variables}
		_, err := h.InApp.CreateInApp(ctx, personID, plan.Reference, plan.Type, tmpl)
		return err
	}

	jobID := domain.NewJobID(plan.Reference, plan.Type)
	existing, err := h.Jobs.FindByID(ctx, jobID)
	if err != nil && err != domain.ErrJobNotFound {
		return err
	}
	if existing != nil {
		if existing.FireAt.Equal(plan.FireAt) {
			return nil
		}
		if err := existing.Reschedule(plan.FireAt); err != nil {
			return err
		}
		return h.Jobs.Upsert(ctx, existing)
	}

	recipient := domain.Recipient{TraineeID: personID, MessageKind: plan.Type.MessageKind(), Contact: plan.Contact}
	tmpl := domain.TemplateBinding{Name: plan.Type.TemplateName(), Version: "v1", Variables: plan.Variables}
	hist, err := domain.NewHistory(plan.Type, plan.Reference, recipient, tmpl, plan.FireAt)
	if err != nil {
		return err
	}
	if err := h.Histories.Create(ctx, hist); err != nil {
		return err
	}
	job := domain.NewScheduledJob(plan.Reference, plan.Type, hist.GetID(), plan.FireAt)
	return h.Jobs.Upsert(ctx, job)
}

// ProgrammeMembershipUpdated computes all planned notification types for
// the membership and schedules/reconciles each, per §4.8.
func (h *Handlers) ProgrammeMembershipUpdated(ctx context.Context, pm rules.ProgrammeMembership) error {
	now := h.Clock.Now()
	plans := rules.PlannedCreateTimeNotifications(pm, h.Config, now)
	for _, p := range plans {
		if err := h.schedule(ctx, pm.PersonID, p); err != nil {
			return err
		}
	}
	return nil
}

// ProgrammeMembershipDeleted cancels all scheduled notifications for the
// membership and marks non-terminal history rows DELETED.
func (h *Handlers) ProgrammeMembershipDeleted(ctx context.Context, tisID string) error {
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: tisID}
	return h.cascadeDelete(ctx, ref)
}

// PlacementUpdated schedules PLACEMENT_UPDATED_WEEK_12.
func (h *Handlers) PlacementUpdated(ctx context.Context, p rules.Placement) error {
	for _, plan := range rules.PlannedPlacementNotifications(p, h.Clock.Now()) {
		if err := h.schedule(ctx, p.PersonID, plan); err != nil {
			return err
		}
	}
	return nil
}

// PlacementDeleted cancels all scheduled notifications for the placement.
func (h *Handlers) PlacementDeleted(ctx context.Context, tisID string) error {
	ref := domain.Reference{Kind: domain.ReferencePlacement, ID: tisID}
	return h.cascadeDelete(ctx, ref)
}

// PlacementRolloutCorrection schedules the always-fires one-off correction.
func (h *Handlers) PlacementRolloutCorrection(ctx context.Context, p rules.Placement) error {
	return h.schedule(ctx, p.PersonID, rules.PlannedRolloutCorrection(p, h.Clock.Now()))
}

// FormDeleted cascade-deletes history rows referencing the form id.
func (h *Handlers) FormDeleted(ctx context.Context, formRef string) error {
	ref := domain.Reference{Kind: domain.ReferenceLTFT, ID: formRef}
	return h.cascadeDelete(ctx, ref)
}

// cascadeDelete cancels outstanding jobs and marks non-terminal history
// rows DELETED for ref.
func (h *Handlers) cascadeDelete(ctx context.Context, ref domain.Reference) error {
	if _, err := h.Jobs.DeleteByReference(ctx, ref); err != nil {
		return err
	}
	rows, err := h.Histories.FindByReference(ctx, ref)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Status == domain.StatusSent || row.Status == domain.StatusFailed || row.Status == domain.StatusDeleted {
			continue
		}
		if err := row.MarkDeleted(); err != nil {
			return err
		}
		if err := h.Histories.Update(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// GmcUpdated sends GMC_UPDATED to every distinct LO email contact.
func (h *Handlers) GmcUpdated(ctx context.Context, evt rules.GmcUpdate, loName string) error {
	contacts, err := h.Contacts.ListTraineeContacts(ctx, evt.TraineeID, domain.ContactTypeGmcUpdate)
	if err != nil {
		contacts = nil
	}
	for _, plan := range rules.GmcUpdatedPlans(evt, contacts, h.Clock.Now()) {
		if err := h.schedule(ctx, evt.TraineeID, plan); err != nil {
			return err
		}
	}
	return nil
}

// GmcRejected sends GMC_REJECTED_LO to each LO contact and
// GMC_REJECTED_TRAINEE to the trainee.
func (h *Handlers) GmcRejected(ctx context.Context, evt rules.GmcRejected) error {
	contacts, err := h.Contacts.ListTraineeContacts(ctx, evt.TraineeID, domain.ContactTypeGmcUpdate)
	if err != nil {
		contacts = nil
	}
	for _, plan := range rules.GmcRejectedPlans(evt, contacts, h.Clock.Now()) {
		if err := h.schedule(ctx, evt.TraineeID, plan); err != nil {
			return err
		}
	}
	return nil
}

// LtftUpdated dispatches the trainee-channel notification for the form's
// current state; the TPD channel is handled separately by LtftUpdatedTPD.
func (h *Handlers) LtftUpdated(ctx context.Context, evt rules.LtftUpdate) error {
	contactsByType := h.resolveLtftContacts(ctx, evt.TraineeID)
	contacts := rules.BuildContactsMap(contactsByType)

	plan := rules.LtftTraineePlan(evt, contacts, h.Clock.Now())
	return h.schedule(ctx, evt.TraineeID, plan)
}

// LtftUpdatedTPD dispatches the TPD-channel notification to
// discussions.tpdEmail only.
func (h *Handlers) LtftUpdatedTPD(ctx context.Context, evt rules.LtftUpdate) error {
	contactsByType := h.resolveLtftContacts(ctx, evt.TraineeID)
	contacts := rules.BuildContactsMap(contactsByType)

	plan := rules.LtftTPDPlan(evt, contacts, h.Clock.Now())
	return h.schedule(ctx, evt.TraineeID, plan)
}

func (h *Handlers) resolveLtftContacts(ctx context.Context, traineeID string) map[string][]domain.LocalOfficeContact {
	out := make(map[string][]domain.LocalOfficeContact, len(rules.LtftContactTypes))
	for _, t := range rules.LtftContactTypes {
		list, err := h.Contacts.ListTraineeContacts(ctx, traineeID, t)
		if err != nil {
			continue
		}
		out[t] = list
	}
	return out
}

// CojSigned cancels any still-scheduled PROGRAMME_CREATED job for the
// membership and deletes its SCHEDULED history row, per §4.6's cancel(jobId)
// contract.
func (h *Handlers) CojSigned(ctx context.Context, tisID string) error {
	outcome := rules.CojSigned(tisID)
	jobID := domain.NewJobID(outcome.Reference, outcome.CancelType)
	job, err := h.Jobs.FindByID(ctx, jobID)
	if err != nil {
		if err == domain.ErrJobNotFound {
			return nil
		}
		return err
	}
	if job == nil {
		return nil
	}
	if err := h.Jobs.Cancel(ctx, jobID); err != nil {
		return err
	}

	row, err := h.Histories.FindByID(ctx, job.HistoryID)
	if err != nil {
		if err == domain.ErrHistoryNotFound {
			return nil
		}
		return err
	}
	if row.Status == domain.StatusSent || row.Status == domain.StatusFailed || row.Status == domain.StatusDeleted {
		return nil
	}
	if err := row.MarkDeleted(); err != nil {
		return err
	}
	return h.Histories.Update(ctx, row)
}
