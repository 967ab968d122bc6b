// Package dispatch implements the Dispatch Worker (C7): the fire-time
// pipeline that refreshes the recipient, re-checks eligibility, renders,
// sends and records the outcome of a single scheduled job.
package dispatch

import (
	"context"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/application/resolve"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain/rules"
)

// TemplateVersion pins the template version per delivery medium.
type TemplateVersion struct {
	Email string
	InApp string
}

// JobPayload is the fully-resolved data a ScheduledJob carries: enough to
// re-derive recipient and template state without depending on in-memory
// planning state from ingest time.
type JobPayload struct {
	PersonID  string
	TisID     string
	Reference domain.Reference
	Variables map[string]interface{}

	// Reapply reports whether the notification type is still applicable
	// at fire time (the JIT re-check named in §4.7 step 3). It is optional:
	// when nil the re-check is skipped. The scheduler's fire path builds
	// payloads without it, so scheduled jobs are not re-checked.
	Reapply func(ctx context.Context) (bool, error)
}

// Worker executes fired jobs.
type Worker struct {
	Histories       domain.HistoryRepository
	Resolver        *resolve.Resolver
	Eligibility     ports.EligibilitySPI
	Renderer        ports.TemplateRenderer
	Transport       ports.TransportSPI
	Broadcast       ports.BroadcastPublisher
	Clock           ports.Clock
	TemplateVersions map[string]TemplateVersion
	DummyRoles      map[string]struct{}
	Whitelist       map[string]struct{}
}

// Dispatch runs the fire-time pipeline for a single History row, per §4.7.
func (w *Worker) Dispatch(ctx context.Context, h *domain.History, payload JobPayload) error {
	recipient, statusDetail, err := w.refreshRecipient(ctx, h, payload)
	if err != nil {
		return w.fail(ctx, h, domain.NewDispatchError(domain.KindTransportTransient, "recipient refresh failed", err))
	}
	h.Recipient = recipient

	justLog, detail := w.jitRecheck(ctx, payload, h.Type.MessageKind(), statusDetail)

	version, err := w.templateVersion(h.Type, h.Type.MessageKind())
	if err != nil {
		return w.fail(ctx, h, domain.NewDispatchError(domain.KindConfigError, "missing template version", err))
	}

	templateVars := w.standardVariables(payload)
	templatePath := w.Renderer.TemplatePath(h.Type.MessageKind(), h.Type.TemplateName(), version)
	if _, err := w.Renderer.Render(ctx, templatePath, templateVars); err != nil {
		return w.fail(ctx, h, domain.NewDispatchError(domain.KindTransportPermanent, "template render failed", err))
	}

	var address *string
	if h.Type.MessageKind() == domain.MessageKindEmail {
		address = &recipient.Contact
	}

	result, err := w.Transport.Send(ctx, payload.PersonID, address, h.Type, version, templateVars, &payload.Reference, justLog)
	if err != nil {
		return w.fail(ctx, h, classifyTransportError(err))
	}

	now := w.Clock.Now()
	if justLog || (result != nil && result.Delivered) {
		if detail == "" && justLog {
			detail = rules.StatusDetailJustLogged
		}
		if err := h.MarkSent(now); err != nil {
			return err
		}
		h.FailureReason = detail
		return w.save(ctx, h)
	}

	if err := h.MarkFailed(now, "transport reported non-delivery"); err != nil {
		return err
	}
	return w.save(ctx, h)
}

func (w *Worker) refreshRecipient(ctx context.Context, h *domain.History, payload JobPayload) (domain.Recipient, string, error) {
	recipient := h.Recipient
	if h.Type.MessageKind() != domain.MessageKindEmail {
		return recipient, "", nil
	}
	if h.Type.IsDirectAddress() {
		return recipient, "", nil
	}
	u, err := w.Resolver.Resolve(ctx, payload.PersonID)
	if err != nil {
		return recipient, "", err
	}
	if u == nil || u.Email == "" {
		recipient.Contact = ""
		return recipient, "recipient not found", nil
	}
	recipient.Contact = u.Email
	return recipient, "", nil
}

func (w *Worker) jitRecheck(ctx context.Context, payload JobPayload, kind domain.MessageKind, priorDetail string) (justLog bool, detail string) {
	detail = priorDetail
	if payload.Reapply != nil {
		applicable, err := payload.Reapply(ctx)
		if err == nil && !applicable {
			return true, "criteria not met"
		}
	}

	dctx := rules.DispatchContext{PersonID: payload.PersonID, IsEligibleRecipient: true, MessagingEnabled: true}
	if detail == "recipient not found" {
		dctx.IsEligibleRecipient = false
	} else if w.Eligibility != nil {
		if ok, err := w.Eligibility.IsValidRecipient(ctx, payload.PersonID, kind); err == nil {
			dctx.IsEligibleRecipient = ok
		}
		if ok, err := w.Eligibility.IsMessagingEnabled(ctx, payload.PersonID); err == nil {
			dctx.MessagingEnabled = ok
		}
	}

	cfg := rules.Config{WhitelistedPersonIDs: w.Whitelist, DummyRoles: w.DummyRoles}
	return rules.JustLog(dctx, cfg), detail
}

func (w *Worker) templateVersion(typ domain.NotificationType, kind domain.MessageKind) (string, error) {
	tv, ok := w.TemplateVersions[typ.TemplateName()]
	if !ok {
		return "", domain.ErrConfig
	}
	if kind == domain.MessageKindEmail {
		if tv.Email == "" {
			return "", domain.ErrConfig
		}
		return tv.Email, nil
	}
	if tv.InApp == "" {
		return "", domain.ErrConfig
	}
	return tv.InApp, nil
}

// standardVariables copies the caller-supplied variables and sets personId
// and tisId over them, plus isValidGmc when a string gmcNumber variable is
// present. No other standard field (startDate, owner, ownerContact,
// contactHref) is added here; a template sees one only if the caller
// supplied it.
func (w *Worker) standardVariables(payload JobPayload) map[string]interface{} {
	out := make(map[string]interface{}, len(payload.Variables)+6)
	for k, v := range payload.Variables {
		out[k] = v
	}
	out["personId"] = payload.PersonID
	out["tisId"] = payload.TisID
	if gmc, ok := out["gmcNumber"].(string); ok {
		out["isValidGmc"] = resolve.IsValidGmc(gmc)
	}
	return out
}

func (w *Worker) fail(ctx context.Context, h *domain.History, derr *domain.DispatchError) error {
	now := w.Clock.Now()
	_ = h.MarkFailed(now, derr.Error())
	_ = w.save(ctx, h)
	return derr
}

func (w *Worker) save(ctx context.Context, h *domain.History) error {
	if err := w.Histories.Update(ctx, h); err != nil {
		return err
	}
	if w.Broadcast == nil {
		return nil
	}
	if err := w.Broadcast.PublishChanged(ctx, h); err != nil {
		return domain.NewDispatchError(domain.KindBroadcastFailure, "publish history change", err)
	}
	return nil
}

func classifyTransportError(err error) *domain.DispatchError {
	if de, ok := err.(*domain.DispatchError); ok {
		return de
	}
	return domain.NewDispatchError(domain.KindTransportTransient, "transport call failed", err)
}

