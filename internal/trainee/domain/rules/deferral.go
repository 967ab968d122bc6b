package rules

import "time"

// IsDeferral reports whether newStartDate constitutes a deferral of
// oldStartDate: moved strictly later by more than the configured threshold.
func IsDeferral(oldStartDate, newStartDate time.Time, cfg Config) bool {
	threshold := time.Duration(cfg.DeferralMoreThanDays) * 24 * time.Hour
	return newStartDate.After(oldStartDate.Add(threshold))
}

// DeferralReschedule computes the new PROGRAMME_CREATED fire time per
// §4.5.4: preserve the original lead time between send and start date,
// applied to the new start date. Immediate is true when that instant has
// already passed, meaning the job should fire right away instead of being
// scheduled.
func DeferralReschedule(oldStartDate, oldSentAt, newStartDate, now time.Time) (fireAt time.Time, immediate bool) {
	leadDays := int(oldStartDate.Sub(oldSentAt).Hours() / 24)
	fireAt = newStartDate.AddDate(0, 0, -leadDays)
	if !fireAt.After(now) {
		return now, true
	}
	return fireAt, false
}
