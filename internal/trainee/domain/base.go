// Package domain contains the domain layer for the trainee notification
// orchestrator: the notification decision-and-scheduling engine described
// by the core specification. It has no outward dependencies on
// infrastructure or transport.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities.
type Entity interface {
	GetID() uuid.UUID
}

// AggregateRoot is the base interface for aggregate roots that emit domain
// events as a side effect of state transitions.
type AggregateRoot interface {
	Entity
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
	AddDomainEvent(event DomainEvent)
	GetVersion() int
	IncrementVersion()
}

// BaseEntity provides common identity and audit fields for all entities.
type BaseEntity struct {
	ID        uuid.UUID `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// GetID returns the entity ID.
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// MarkUpdated bumps the UpdatedAt timestamp.
func (e *BaseEntity) MarkUpdated() {
	e.UpdatedAt = time.Now().UTC()
}

// BaseAggregateRoot adds an optimistic-concurrency version and a pending
// domain event buffer to BaseEntity.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `json:"version" bson:"version"`
	domainEvents []DomainEvent `json:"-" bson:"-"`
}

// GetDomainEvents returns all pending domain events.
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears all pending domain events.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// AddDomainEvent queues a domain event for publication after persistence.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetVersion returns the aggregate version used for optimistic concurrency.
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the aggregate version.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseEntity creates a base entity with a generated id and timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// NewBaseEntityWithID creates a base entity with a caller-supplied id, used
// when the id is deterministic (e.g. a ScheduledJob's jobId-derived row).
func NewBaseEntityWithID(id uuid.UUID) BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: id, CreatedAt: now, UpdatedAt: now}
}

// NewBaseAggregateRoot creates a new aggregate root at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// DomainEvent is the base interface for all domain events raised by
// aggregates in this package.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
}

// BaseDomainEvent provides the common fields for domain events.
type BaseDomainEvent struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	AggrID   uuid.UUID `json:"aggregate_id"`
	Occurred time.Time `json:"occurred_at"`
}

// EventID returns the event id.
func (e *BaseDomainEvent) EventID() uuid.UUID { return e.ID }

// EventType returns the event type tag.
func (e *BaseDomainEvent) EventType() string { return e.Type }

// OccurredAt returns when the event occurred.
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.Occurred }

// AggregateID returns the id of the aggregate that raised the event.
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggrID }

// NewBaseDomainEvent creates a new base domain event.
func NewBaseDomainEvent(eventType string, aggregateID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:       uuid.New(),
		Type:     eventType,
		AggrID:   aggregateID,
		Occurred: time.Now().UTC(),
	}
}
