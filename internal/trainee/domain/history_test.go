package domain

import (
	"testing"
	"time"
)

func mustHistory(t *testing.T, typ NotificationType, kind MessageKind) *History {
	t.Helper()
	ref := Reference{Kind: ReferenceProgrammeMembership, ID: "pm-1"}
	recipient := Recipient{TraineeID: "trainee-1", MessageKind: kind, Contact: "trainee-1"}
	tmpl := TemplateBinding{Name: typ.TemplateName(), Version: "v1"}
	h, err := NewHistory(typ, ref, recipient, tmpl, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	return h
}

func TestNewHistory_RejectsChannelMismatch(t *testing.T) {
	ref := Reference{Kind: ReferenceProgrammeMembership, ID: "pm-1"}
	recipient := Recipient{TraineeID: "t", MessageKind: MessageKindInApp, Contact: "t"}
	tmpl := TemplateBinding{Name: "x", Version: "v1"}
	_, err := NewHistory(TypeProgrammeCreated, ref, recipient, tmpl, time.Now())
	if err != ErrInvalidChannel {
		t.Fatalf("expected ErrInvalidChannel, got %v", err)
	}
}

func TestNewHistory_RejectsInvalidReference(t *testing.T) {
	ref := Reference{Kind: ReferenceProgrammeMembership, ID: ""}
	recipient := Recipient{TraineeID: "t", MessageKind: MessageKindEmail, Contact: "t@example.com"}
	tmpl := TemplateBinding{Name: "x", Version: "v1"}
	_, err := NewHistory(TypeProgrammeCreated, ref, recipient, tmpl, time.Now())
	if err != ErrInvalidReference {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestHistory_EmailLifecycle(t *testing.T) {
	h := mustHistory(t, TypeProgrammeCreated, MessageKindEmail)

	if err := h.MarkSent(time.Now().UTC()); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if h.Status != StatusSent || h.SentAt == nil {
		t.Fatalf("expected SENT with SentAt set, got %+v", h)
	}

	if err := h.MarkRead(time.Now().UTC()); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition marking an email row as read, got %v", err)
	}

	if err := h.MarkDeleted(); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}
	if h.Status != StatusDeleted {
		t.Fatalf("expected DELETED, got %s", h.Status)
	}
}

func TestHistory_EmailFailure(t *testing.T) {
	h := mustHistory(t, TypeProgrammeCreated, MessageKindEmail)

	if err := h.MarkFailed(time.Now().UTC(), "smtp timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if h.Status != StatusFailed || h.FailureReason != "smtp timeout" {
		t.Fatalf("unexpected state: %+v", h)
	}
	if err := h.MarkSent(time.Now().UTC()); err != ErrInvalidTransition {
		t.Fatalf("FAILED should be terminal except for DELETED, got %v", err)
	}
}

func TestHistory_InAppLifecycle(t *testing.T) {
	h := mustHistory(t, TypeLTFT, MessageKindInApp)

	if err := h.MarkUnread(); err != nil {
		t.Fatalf("MarkUnread: %v", err)
	}
	if err := h.MarkRead(time.Now().UTC()); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if h.ReadAt == nil {
		t.Fatal("expected ReadAt to be set")
	}
	if err := h.MarkArchived(); err != nil {
		t.Fatalf("MarkArchived: %v", err)
	}
	if err := h.MarkDeleted(); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}
}

func TestHistory_VersionAndEventsIncrementOnTransition(t *testing.T) {
	h := mustHistory(t, TypeProgrammeCreated, MessageKindEmail)
	h.ClearDomainEvents()
	startVersion := h.GetVersion()

	if err := h.MarkSent(time.Now().UTC()); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if h.GetVersion() != startVersion+1 {
		t.Fatalf("expected version to increment, got %d want %d", h.GetVersion(), startVersion+1)
	}
	events := h.GetDomainEvents()
	if len(events) != 1 || events[0].EventType() != EventTypeHistoryStatusSet {
		t.Fatalf("expected one status-changed event, got %+v", events)
	}
}

func TestHistory_IsDue(t *testing.T) {
	h := mustHistory(t, TypeProgrammeCreated, MessageKindEmail)
	h.ScheduledFor = time.Now().UTC().Add(-time.Minute)
	if !h.IsDue(time.Now().UTC()) {
		t.Fatal("expected row scheduled in the past to be due")
	}
	h.ScheduledFor = time.Now().UTC().Add(time.Hour)
	if h.IsDue(time.Now().UTC()) {
		t.Fatal("expected row scheduled in the future to not be due")
	}
}
