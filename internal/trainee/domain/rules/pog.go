package rules

import (
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// IsPogExtension reports whether newCct pushes the CCT date out far enough
// to warrant rescheduling the POG notifications, per §4.5.5: analogous to
// deferral but keyed on CCT rather than start date.
func IsPogExtension(oldCct, newCct time.Time, cfg Config) bool {
	threshold := time.Duration(cfg.DeferralMoreThanDays) * 24 * time.Hour
	return !newCct.Before(oldCct.Add(threshold))
}

// PogReschedule recomputes the POG_12/POG_6 plans for the extended CCT date.
func PogReschedule(ref domain.Reference, newCct time.Time, cfg Config, now time.Time) []Plan {
	return plannedPogNotifications(ref, newCct, cfg, now)
}
