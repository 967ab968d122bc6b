// Package inapp implements the In-App Notifier (C9): creating unread
// in-app History rows directly, with no scheduled dispatch, honouring
// uniqueness per (reference, type).
package inapp

import (
	"context"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// Notifier creates in-app History rows.
type Notifier struct {
	Histories domain.HistoryRepository
	Broadcast ports.BroadcastPublisher
	Clock     ports.Clock
}

// NewNotifier builds a Notifier.
func NewNotifier(histories domain.HistoryRepository, broadcast ports.BroadcastPublisher, clock ports.Clock) *Notifier {
	return &Notifier{Histories: histories, Broadcast: broadcast, Clock: clock}
}

// CreateInApp inserts a new UNREAD row for traineeID unless a row for
// (ref, typ) already exists in {UNREAD, READ, ARCHIVED}, per §4.9.
func (n *Notifier) CreateInApp(ctx context.Context, traineeID string, ref domain.Reference, typ domain.NotificationType, tmpl domain.TemplateBinding) (*domain.History, error) {
	existing, err := n.Histories.FindByReferenceAndType(ctx, ref, typ)
	if err != nil && err != domain.ErrHistoryNotFound {
		return nil, err
	}
	if existing != nil && isActiveInApp(existing.Status) {
		return existing, nil
	}

	recipient := domain.Recipient{TraineeID: traineeID, MessageKind: domain.MessageKindInApp, Contact: traineeID}
	h, err := domain.NewHistory(typ, ref, recipient, tmpl, n.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := h.MarkUnread(); err != nil {
		return nil, err
	}
	if err := n.Histories.Create(ctx, h); err != nil {
		return nil, err
	}
	if n.Broadcast != nil {
		if err := n.Broadcast.PublishChanged(ctx, h); err != nil {
			return h, domain.NewDispatchError(domain.KindBroadcastFailure, "publish in-app notification", err)
		}
	}
	return h, nil
}

func isActiveInApp(s domain.NotificationStatus) bool {
	return s == domain.StatusUnread || s == domain.StatusRead || s == domain.StatusArchived
}
