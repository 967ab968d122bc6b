package rules

import (
	"testing"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

func TestLtftNotificationType(t *testing.T) {
	cases := map[string]domain.NotificationType{
		"APPROVED":    domain.TypeLtftApproved,
		"SUBMITTED":   domain.TypeLtftSubmitted,
		"UNSUBMITTED": domain.TypeLtftUnsubmitted,
		"WITHDRAWN":   domain.TypeLtftWithdrawn,
		"SOMETHING":   domain.TypeLtftUpdated,
	}
	for state, want := range cases {
		if got := LtftNotificationType(state); got != want {
			t.Errorf("state %s: got %s, want %s", state, got, want)
		}
	}
}

func TestBuildContactsMap_DefaultsWhenMissing(t *testing.T) {
	contacts := BuildContactsMap(map[string][]domain.LocalOfficeContact{
		domain.ContactTypeLTFT: {{Type: domain.ContactTypeLTFT, Contact: "ltft@lo.example"}},
	})
	if len(contacts) != len(LtftContactTypes) {
		t.Fatalf("expected %d entries, got %d", len(LtftContactTypes), len(contacts))
	}
	if contacts[domain.ContactTypeLTFT].Contact != "ltft@lo.example" {
		t.Errorf("expected resolved contact, got %+v", contacts[domain.ContactTypeLTFT])
	}
	if contacts[domain.ContactTypeTSSSupport].Contact != domain.DefaultLocalOfficeContact {
		t.Errorf("expected default contact for unresolved type, got %+v", contacts[domain.ContactTypeTSSSupport])
	}
}

func TestLtftTPDPlan_S6(t *testing.T) {
	now := time.Now().UTC()
	evt := LtftUpdate{
		TraineeID: "t-1", FormRef: "form-1", State: "SUBMITTED",
		ManagingDeanery: "North West", TpdEmail: "tpd@x",
	}
	contacts := BuildContactsMap(nil)

	plan := LtftTPDPlan(evt, contacts, now)
	if plan.Type != domain.TypeLtftSubmittedTPD {
		t.Errorf("expected LTFT_SUBMITTED_TPD, got %s", plan.Type)
	}
	if plan.Variables["tpdEmail"] != "tpd@x" {
		t.Errorf("expected tpdEmail to be tpd@x, got %+v", plan.Variables["tpdEmail"])
	}
	if plan.Contact != "tpd@x" {
		t.Errorf("expected plan.Contact to address tpd@x directly, got %q", plan.Contact)
	}
	gotContacts, ok := plan.Variables["contacts"].(map[string]ContactEntry)
	if !ok || len(gotContacts) != 4 {
		t.Fatalf("expected 4 typed contact entries, got %+v", plan.Variables["contacts"])
	}
}
