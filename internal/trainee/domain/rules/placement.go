package rules

import (
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// placementReminderLeadDays is the 84-day (12-week) lead time for
// PLACEMENT_UPDATED_WEEK_12, per §4.5.2.
const placementReminderLeadDays = 84

// PlannedPlacementNotifications computes the single reminder a placement
// schedules. Placements are never excluded by specialty/subtype rules, only
// by recipient eligibility at dispatch time.
func PlannedPlacementNotifications(p Placement, now time.Time) []Plan {
	if p.StartDate == nil {
		return nil
	}
	ref := domain.Reference{Kind: domain.ReferencePlacement, ID: p.TisID}
	deadline := p.StartDate.AddDate(0, 0, -placementReminderLeadDays)
	if !deadline.After(now) {
		return nil
	}
	return []Plan{{
		Type:      domain.TypePlacementUpdatedWeek12,
		Reference: ref,
		FireAt:    deadline,
		Variables: map[string]interface{}{
			"personId":  p.PersonID,
			"tisId":     p.TisID,
			"startDate": p.StartDate,
			"specialty": p.Specialty,
		},
	}}
}

// PlannedRolloutCorrection builds the one-off PLACEMENT_ROLLOUT_2024_CORRECTION
// plan, which always fires immediately regardless of pilot/rollout
// eligibility (but still requires a valid recipient at dispatch time).
func PlannedRolloutCorrection(p Placement, now time.Time) Plan {
	ref := domain.Reference{Kind: domain.ReferencePlacement, ID: p.TisID}
	return Plan{
		Type:      domain.TypePlacementRollout2024Correction,
		Reference: ref,
		FireAt:    now,
		Immediate: true,
		Variables: map[string]interface{}{
			"personId": p.PersonID,
			"tisId":    p.TisID,
		},
	}
}
