package domain

import "github.com/google/uuid"

// Event type tags for domain events raised by the History aggregate. These
// are distinct from the external broadcast event types in package events;
// a HistoryCreated domain event is translated into an outward broadcast
// message by the application layer, not published verbatim.
const (
	EventTypeHistoryCreated   = "trainee.history.created"
	EventTypeHistoryStatusSet = "trainee.history.status_changed"
	EventTypeHistoryDeleted   = "trainee.history.deleted"
)

// HistoryCreatedEvent is raised when a new History row is scheduled.
type HistoryCreatedEvent struct {
	BaseDomainEvent
	NotificationType NotificationType
	Reference        Reference
}

// NewHistoryCreatedEvent builds a HistoryCreatedEvent.
func NewHistoryCreatedEvent(historyID uuid.UUID, typ NotificationType, ref Reference) *HistoryCreatedEvent {
	return &HistoryCreatedEvent{
		BaseDomainEvent:  NewBaseDomainEvent(EventTypeHistoryCreated, historyID),
		NotificationType: typ,
		Reference:        ref,
	}
}

// StatusChangedEvent is raised on every valid History status transition.
type StatusChangedEvent struct {
	BaseDomainEvent
	NotificationType NotificationType
	From             NotificationStatus
	To               NotificationStatus
}

// NewStatusChangedEvent builds a StatusChangedEvent.
func NewStatusChangedEvent(historyID uuid.UUID, typ NotificationType, from, to NotificationStatus) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent:  NewBaseDomainEvent(EventTypeHistoryStatusSet, historyID),
		NotificationType: typ,
		From:             from,
		To:               to,
	}
}

// HistoryDeletedEvent is raised when a History row is marked deleted,
// typically cascaded from deletion of its referenced object.
type HistoryDeletedEvent struct {
	BaseDomainEvent
	NotificationType NotificationType
	Reference        Reference
}

// NewHistoryDeletedEvent builds a HistoryDeletedEvent.
func NewHistoryDeletedEvent(historyID uuid.UUID, typ NotificationType, ref Reference) *HistoryDeletedEvent {
	return &HistoryDeletedEvent{
		BaseDomainEvent: NewBaseDomainEvent(EventTypeHistoryDeleted, historyID),
		NotificationType: typ,
		Reference:       ref,
	}
}
