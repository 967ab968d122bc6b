package rules

import (
	"testing"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

func TestGmcUpdatedPlans_DedupesAndSkipsNonEmail(t *testing.T) {
	now := time.Now().UTC()
	contacts := []domain.LocalOfficeContact{
		{Type: domain.ContactTypeGmcUpdate, Contact: "email@lo1.example"},
		{Type: domain.ContactTypeGmcUpdate, Contact: "https://lo2.example"},
		{Type: domain.ContactTypeGmcUpdate, Contact: "email@lo1.example"},
	}
	plans := GmcUpdatedPlans(GmcUpdate{TraineeID: "t-1", GmcNumber: "1234567"}, contacts, now)

	if len(plans) != 1 {
		t.Fatalf("expected exactly one plan, got %d: %+v", len(plans), plans)
	}
	if plans[0].Type != domain.TypeGmcUpdated {
		t.Errorf("expected GMC_UPDATED, got %s", plans[0].Type)
	}
	if plans[0].Variables["recipient"] != "email@lo1.example" {
		t.Errorf("unexpected recipient: %+v", plans[0].Variables)
	}
}

func TestGmcRejectedPlans_IncludesCcOfTrainee(t *testing.T) {
	now := time.Now().UTC()
	contacts := []domain.LocalOfficeContact{
		{Type: domain.ContactTypeGmcUpdate, Contact: "lo1@example.com"},
		{Type: domain.ContactTypeGmcUpdate, Contact: "lo2@example.com"},
	}
	plans := GmcRejectedPlans(GmcRejected{TraineeID: "t-1"}, contacts, now)

	if len(plans) != 3 {
		t.Fatalf("expected 2 LO plans + 1 trainee plan, got %d", len(plans))
	}
	var traineePlan *Plan
	for i := range plans {
		if plans[i].Type == domain.TypeGmcRejectedTrainee {
			traineePlan = &plans[i]
		}
	}
	if traineePlan == nil {
		t.Fatal("expected a GMC_REJECTED_TRAINEE plan")
	}
	ccOf, ok := traineePlan.Variables["cc_of"].([]string)
	if !ok || len(ccOf) != 2 {
		t.Fatalf("expected cc_of to list both LO addresses, got %+v", traineePlan.Variables["cc_of"])
	}
}
