package rules

import (
	"testing"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

func TestIsPogExtension(t *testing.T) {
	cfg := testConfig()
	oldCct := date(2032, 1, 1)

	if IsPogExtension(oldCct, oldCct.AddDate(0, 0, 3), cfg) {
		t.Error("small extension should not trigger rescheduling")
	}
	if !IsPogExtension(oldCct, oldCct.AddDate(0, 0, 7), cfg) {
		t.Error("extension meeting the threshold should trigger rescheduling")
	}
}

func TestPogReschedule_WithinCutoffSkipsBoth(t *testing.T) {
	cfg := testConfig()
	now := date(2030, 1, 1)
	cct := now.AddDate(0, 0, 30) // within the 12-week cutoff window
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "tis-1"}

	plans := PogReschedule(ref, cct, cfg, now)
	if len(plans) != 0 {
		t.Fatalf("expected no POG plans within cutoff window, got %+v", plans)
	}
}

func TestPogReschedule_BeyondCutoffSchedulesMonth12Only(t *testing.T) {
	cfg := testConfig()
	now := date(2030, 1, 1)
	cct := now.AddDate(2, 0, 0)
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: "tis-1"}

	plans := PogReschedule(ref, cct, cfg, now)
	if len(plans) != 1 || plans[0].Type != domain.TypeProgrammePogMonth12 {
		t.Fatalf("expected only the POG_MONTH_12 plan, got %+v", plans)
	}
}
