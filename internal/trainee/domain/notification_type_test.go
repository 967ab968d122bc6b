package domain

import "testing"

func TestNotificationType_AllConstantsHaveInfo(t *testing.T) {
	types := []NotificationType{
		TypeProgrammeCreated, TypeProgrammeDayOne,
		TypeProgrammeUpdatedWeek12, TypeProgrammeUpdatedWeek8, TypeProgrammeUpdatedWeek4,
		TypeProgrammeUpdatedWeek2, TypeProgrammeUpdatedWeek1, TypeProgrammeUpdatedWeek0,
		TypeProgrammePogMonth12, TypeProgrammePogMonth6,
		TypePlacementUpdatedWeek12, TypePlacementRollout2024Correction,
		TypeEPortfolio, TypeIndemnityInsurance, TypeLTFT, TypeDeferral, TypeSponsorship,
		TypeGmcUpdated, TypeGmcRejectedLO, TypeGmcRejectedTrainee,
		TypeLtftApproved, TypeLtftSubmitted, TypeLtftUnsubmitted, TypeLtftWithdrawn, TypeLtftUpdated,
		TypeLtftApprovedTPD, TypeLtftSubmittedTPD, TypeLtftUnsubmittedTPD, TypeLtftWithdrawnTPD, TypeLtftUpdatedTPD,
	}
	for _, typ := range types {
		if !typ.IsValid() {
			t.Errorf("%s: expected valid", typ)
		}
		if typ.TemplateName() == "" {
			t.Errorf("%s: expected non-empty template name", typ)
		}
		if typ.MessageKind() != MessageKindEmail && typ.MessageKind() != MessageKindInApp {
			t.Errorf("%s: unexpected message kind %q", typ, typ.MessageKind())
		}
	}
}

func TestNotificationType_InAppSubset(t *testing.T) {
	inApp := map[NotificationType]bool{
		TypeEPortfolio: true, TypeIndemnityInsurance: true, TypeLTFT: true, TypeDeferral: true, TypeSponsorship: true,
	}
	for typ := range notificationTypeInfo {
		want := inApp[typ]
		if typ.IsInApp() != want {
			t.Errorf("%s: IsInApp() = %v, want %v", typ, typ.IsInApp(), want)
		}
	}
}

func TestParseNotificationType(t *testing.T) {
	got, err := ParseNotificationType("  ltft_approved ")
	if err != nil {
		t.Fatalf("ParseNotificationType: %v", err)
	}
	if got != TypeLtftApproved {
		t.Fatalf("got %s, want %s", got, TypeLtftApproved)
	}

	if _, err := ParseNotificationType("not_a_type"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestProgrammeReminderWeeks_Ordered(t *testing.T) {
	want := []int{12, 8, 4, 2, 1, 0}
	for i, w := range ProgrammeReminderWeeks {
		if w.Weeks != want[i] {
			t.Errorf("index %d: got %d weeks, want %d", i, w.Weeks, want[i])
		}
	}
}
