package rules

import (
	"testing"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

func TestPlannedPlacementNotifications(t *testing.T) {
	now := date(2030, 1, 1)
	start := now.AddDate(0, 0, 100) // more than 84 days out
	p := Placement{TisID: "pl-1", PersonID: "person-1", StartDate: &start}

	plans := PlannedPlacementNotifications(p, now)
	if len(plans) != 1 || plans[0].Type != domain.TypePlacementUpdatedWeek12 {
		t.Fatalf("expected one PLACEMENT_UPDATED_WEEK_12 plan, got %+v", plans)
	}
	wantFireAt := start.AddDate(0, 0, -84)
	if !plans[0].FireAt.Equal(wantFireAt) {
		t.Errorf("got fire at %v, want %v", plans[0].FireAt, wantFireAt)
	}
}

func TestPlannedPlacementNotifications_DeadlinePassed(t *testing.T) {
	now := date(2030, 1, 1)
	start := now.AddDate(0, 0, 10) // deadline (start-84d) already passed
	p := Placement{TisID: "pl-1", StartDate: &start}

	if plans := PlannedPlacementNotifications(p, now); plans != nil {
		t.Fatalf("expected no plans, got %+v", plans)
	}
}

func TestPlannedRolloutCorrection_AlwaysFires(t *testing.T) {
	now := date(2030, 1, 1)
	p := Placement{TisID: "pl-1", PersonID: "person-1"}
	plan := PlannedRolloutCorrection(p, now)
	if plan.Type != domain.TypePlacementRollout2024Correction {
		t.Fatalf("unexpected type: %s", plan.Type)
	}
	if !plan.Immediate && !plan.FireAt.Equal(now) {
		t.Errorf("expected immediate fire at now, got %+v", plan)
	}
}
