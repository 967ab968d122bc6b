package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the notification decision-and-scheduling engine.
var (
	ErrHistoryNotFound     = errors.New("history record not found")
	ErrJobNotFound         = errors.New("scheduled job not found")
	ErrInvalidTransition   = errors.New("invalid notification status transition")
	ErrInvalidChannel      = errors.New("invalid message kind for notification type")
	ErrInvalidReference    = errors.New("invalid reference")
	ErrJobAlreadyScheduled = errors.New("job already scheduled with a later fire time")
	ErrJobInFlight         = errors.New("job is mid-fire and cannot be cancelled")
	ErrVersionConflict     = errors.New("optimistic concurrency conflict")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrConfig              = errors.New("configuration error")
)

// ValidationError reports a single field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %q: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message, code string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Code: code}
}

// DispatchErrorKind classifies a dispatch-time failure per the error
// handling design: ConfigError, NotFound, InvalidTransition,
// TransportTransient, TransportPermanent, BroadcastFailure.
type DispatchErrorKind string

const (
	KindConfigError        DispatchErrorKind = "CONFIG_ERROR"
	KindNotFound           DispatchErrorKind = "NOT_FOUND"
	KindInvalidTransition  DispatchErrorKind = "INVALID_TRANSITION"
	KindTransportTransient DispatchErrorKind = "TRANSPORT_TRANSIENT"
	KindTransportPermanent DispatchErrorKind = "TRANSPORT_PERMANENT"
	KindBroadcastFailure   DispatchErrorKind = "BROADCAST_FAILURE"
)

// DispatchError wraps a dispatch-time failure with enough context for the
// worker to decide whether to retry, fail terminally, or just-log.
type DispatchError struct {
	Kind    DispatchErrorKind
	Message string
	Inner   error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Inner)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error.
func (e *DispatchError) Unwrap() error { return e.Inner }

// Retryable reports whether the scheduler should re-fire the job with
// backoff rather than failing it immediately.
func (e *DispatchError) Retryable() bool {
	return e.Kind == KindTransportTransient
}

// NewDispatchError builds a DispatchError.
func NewDispatchError(kind DispatchErrorKind, message string, inner error) *DispatchError {
	return &DispatchError{Kind: kind, Message: message, Inner: inner}
}
