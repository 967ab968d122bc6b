package rules

import (
	"strings"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// Plan is a single notification the engine has decided is owed: either a
// future fire time for the scheduler (email family) or an immediate in-app
// row (C9). FireAt is zero for immediate-create plans.
type Plan struct {
	Type      domain.NotificationType
	Reference domain.Reference
	FireAt    time.Time
	Immediate bool
	Variables map[string]interface{}
	// Contact addresses the recipient directly, bypassing identity
	// resolution. Empty unless Type.IsDirectAddress().
	Contact string
}

// ExcludeProgrammeMembership reports whether pm is excluded from all
// programme notifications, per §4.5.1.
func ExcludeProgrammeMembership(pm ProgrammeMembership, cfg Config, now time.Time) bool {
	if pm.StartDate == nil || pm.StartDate.Before(startOfDay(now, cfg.Timezone)) {
		return true
	}
	if len(pm.Curricula) == 0 {
		return true
	}
	hasIncludedSubtype := false
	for _, c := range pm.Curricula {
		if _, ok := cfg.IncludedCurriculumSubtypes[strings.ToLower(c.SubType)]; ok {
			hasIncludedSubtype = true
		}
		if _, ok := cfg.ExcludedSpecialties[strings.ToUpper(c.Specialty)]; ok {
			return true
		}
	}
	return !hasIncludedSubtype
}

// startOfDay returns midnight of t's calendar day in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CCTDate returns the certificate-of-completion-of-training date: the max
// endDate among curricula eligible for period of grace, or nil.
func CCTDate(pm ProgrammeMembership) *time.Time {
	var latest *time.Time
	for _, c := range pm.Curricula {
		if !c.EligibleForPeriodOfGrace || c.EndDate == nil {
			continue
		}
		if latest == nil || c.EndDate.After(*latest) {
			d := *c.EndDate
			latest = &d
		}
	}
	return latest
}

// PlannedCreateTimeNotifications computes every notification a newly
// ingested, non-excluded programme membership owes at create/update time:
// PROGRAMME_CREATED, PROGRAMME_DAY_ONE, the week-K reminders, the POG
// notifications, and the in-app create-time rows. It does not consider
// deferral reconciliation against prior history; callers apply that
// separately (see Deferral/POGExtension).
func PlannedCreateTimeNotifications(pm ProgrammeMembership, cfg Config, now time.Time) []Plan {
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: pm.TisID}
	if ExcludeProgrammeMembership(pm, cfg, now) {
		return nil
	}

	var plans []Plan
	baseVars := map[string]interface{}{
		"personId":      pm.PersonID,
		"tisId":         pm.TisID,
		"programmeName": pm.ProgrammeName,
		"startDate":     pm.StartDate,
	}

	plans = append(plans, Plan{
		Type:      domain.TypeProgrammeCreated,
		Reference: ref,
		FireAt:    now.Add(cfg.NotificationDelay),
		Variables: cloneVars(baseVars),
	})

	plans = append(plans, Plan{
		Type:      domain.TypeProgrammeDayOne,
		Reference: ref,
		FireAt:    startOfDay(*pm.StartDate, cfg.Timezone),
		Variables: cloneVars(baseVars),
	})

	for _, w := range domain.ProgrammeReminderWeeks {
		deadline := pm.StartDate.Add(-time.Duration(w.Weeks) * 7 * 24 * time.Hour)
		if !deadline.After(now) {
			continue
		}
		plans = append(plans, Plan{
			Type:      w.Type,
			Reference: ref,
			FireAt:    deadline,
			Variables: cloneVars(baseVars),
		})
	}

	if cct := CCTDate(pm); cct != nil {
		plans = append(plans, plannedPogNotifications(ref, *cct, cfg, now)...)
	}

	for _, t := range domain.ProgrammeCreateTimeInAppTypes {
		vars := cloneVars(baseVars)
		if t == domain.TypeIndemnityInsurance {
			vars["blockIndemnity"] = anyBlockIndemnity(pm.Curricula)
		}
		plans = append(plans, Plan{
			Type:      t,
			Reference: ref,
			Immediate: true,
			Variables: vars,
		})
	}

	return plans
}

// plannedPogNotifications computes PROGRAMME_POG_MONTH_{12,6} per §4.5.1's
// cutoff-window rules.
func plannedPogNotifications(ref domain.Reference, cct time.Time, cfg Config, now time.Time) []Plan {
	cutoff := now.AddDate(0, 0, cfg.PogCutoffWeeks*7)
	if cct.Before(cutoff) {
		return nil
	}

	var plans []Plan
	twelveMonthCutoff := now.AddDate(0, cfg.Pog12MonthCutoffMonths, 0)
	if !cct.Before(twelveMonthCutoff) {
		twelveMonthTarget := cct.AddDate(0, 0, -365)
		plans = append(plans, Plan{
			Type:      domain.TypeProgrammePogMonth12,
			Reference: ref,
			FireAt:    twelveMonthTarget,
			Variables: map[string]interface{}{"cct": cct},
		})
		return plans
	}

	sixMonthTarget := cct.AddDate(0, 0, -182)
	plans = append(plans, Plan{
		Type:      domain.TypeProgrammePogMonth6,
		Reference: ref,
		FireAt:    sixMonthTarget,
		Variables: map[string]interface{}{"cct": cct},
	})
	return plans
}

func anyBlockIndemnity(curricula []Curriculum) bool {
	for _, c := range curricula {
		if c.BlockIndemnity {
			return true
		}
	}
	return false
}

func cloneVars(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
