package domain

import (
	"time"

	"github.com/google/uuid"
)

// History is the aggregate root for an auditable notification record: one
// row per notification instance, from scheduling decision through to
// delivery or failure. Once SENT or FAILED, Type, Reference, Recipient and
// Template are frozen; only Status (and, for in-app rows, ReadAt) may still
// change.
type History struct {
	BaseAggregateRoot

	Type      NotificationType `json:"type" bson:"type"`
	Status    NotificationStatus `json:"status" bson:"status"`
	Reference Reference        `json:"reference" bson:"reference"`
	Recipient Recipient        `json:"recipient" bson:"recipient"`
	Template  TemplateBinding  `json:"template" bson:"template"`

	ScheduledFor time.Time  `json:"scheduledFor" bson:"scheduled_for"`
	SentAt       *time.Time `json:"sentAt,omitempty" bson:"sent_at,omitempty"`
	FailedAt     *time.Time `json:"failedAt,omitempty" bson:"failed_at,omitempty"`
	ReadAt       *time.Time `json:"readAt,omitempty" bson:"read_at,omitempty"`
	FailureReason string    `json:"failureReason,omitempty" bson:"failure_reason,omitempty"`
}

// NewHistory creates a new SCHEDULED history row for a future or immediate
// fire time. scheduledFor is the time the ScheduledJob is expected to fire;
// for in-app notifications created and dispatched inline, callers pass the
// current time.
func NewHistory(typ NotificationType, ref Reference, recipient Recipient, tmpl TemplateBinding, scheduledFor time.Time) (*History, error) {
	if !typ.IsValid() {
		return nil, NewValidationError("type", "unknown notification type", "INVALID_TYPE")
	}
	if !ref.IsValid() {
		return nil, ErrInvalidReference
	}
	if recipient.MessageKind != typ.MessageKind() {
		return nil, ErrInvalidChannel
	}
	h := &History{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		Type:              typ,
		Status:            StatusScheduled,
		Reference:         ref,
		Recipient:         recipient,
		Template:          tmpl,
		ScheduledFor:      scheduledFor,
	}
	h.AddDomainEvent(NewHistoryCreatedEvent(h.ID, h.Type, h.Reference))
	return h, nil
}

// transition applies a status change, validating it against the per-kind
// transition table and recording the event. Callers should not mutate
// Status directly.
func (h *History) transition(to NotificationStatus) error {
	if !CanTransitionTo(h.Type.MessageKind(), h.Status, to) {
		return ErrInvalidTransition
	}
	from := h.Status
	h.Status = to
	h.MarkUpdated()
	h.IncrementVersion()
	h.AddDomainEvent(NewStatusChangedEvent(h.ID, h.Type, from, to))
	return nil
}

// MarkSent records a successful email delivery.
func (h *History) MarkSent(at time.Time) error {
	if err := h.transition(StatusSent); err != nil {
		return err
	}
	h.SentAt = &at
	return nil
}

// MarkFailed records a terminal delivery failure.
func (h *History) MarkFailed(at time.Time, reason string) error {
	if err := h.transition(StatusFailed); err != nil {
		return err
	}
	h.FailedAt = &at
	h.FailureReason = reason
	return nil
}

// MarkUnread records an in-app notification becoming visible to the
// trainee (the in-app equivalent of MarkSent).
func (h *History) MarkUnread() error {
	return h.transition(StatusUnread)
}

// MarkRead records the trainee opening an in-app notification.
func (h *History) MarkRead(at time.Time) error {
	if err := h.transition(StatusRead); err != nil {
		return err
	}
	h.ReadAt = &at
	return nil
}

// MarkArchived archives an in-app notification.
func (h *History) MarkArchived() error {
	return h.transition(StatusArchived)
}

// MarkDeleted soft-deletes the row, e.g. when its Reference object (a
// placement, an LTFT form) is itself deleted upstream.
func (h *History) MarkDeleted() error {
	if err := h.transition(StatusDeleted); err != nil {
		return err
	}
	h.AddDomainEvent(NewHistoryDeletedEvent(h.ID, h.Type, h.Reference))
	return nil
}

// IsTerminalForEmail reports whether an email row has reached SENT/FAILED
// and its business fields are now frozen.
func (h *History) IsTerminalForEmail() bool {
	return h.Type.MessageKind() == MessageKindEmail && (h.Status == StatusSent || h.Status == StatusFailed)
}

// IsDue reports whether the row's scheduled fire time has arrived.
func (h *History) IsDue(now time.Time) bool {
	return h.Status == StatusScheduled && !h.ScheduledFor.After(now)
}

// HistoryID is a typed alias used by repository signatures for clarity.
type HistoryID = uuid.UUID
