// Package rules implements the exclusion, eligibility, deferral and
// suppress-vs-send decisions described as the Rules Engine: pure functions
// over domain-event snapshots and configuration, producing notification
// plans for the event ingest orchestrator to schedule. Nothing here touches
// a repository, the clock beyond an injected "now", or any SPI.
package rules

import "time"

// Config carries the tunables the rules engine needs, bound from the
// application's viper configuration at startup.
type Config struct {
	Timezone                 *time.Location
	NotificationDelay        time.Duration
	DeferralMoreThanDays     int
	PogCutoffWeeks           int
	Pog12MonthCutoffMonths   int
	WhitelistedPersonIDs     map[string]struct{}
	DummyRoles               map[string]struct{}
	IncludedCurriculumSubtypes map[string]struct{} // case-insensitive
	ExcludedSpecialties        map[string]struct{} // compared uppercased
}

// IsWhitelisted reports whether personID overrides justLog suppression.
func (c Config) IsWhitelisted(personID string) bool {
	_, ok := c.WhitelistedPersonIDs[personID]
	return ok
}

// Curriculum is the snapshot of a single programme-membership curriculum
// entry used by the exclusion and CCT-date rules.
type Curriculum struct {
	SubType               string
	Specialty             string
	BlockIndemnity        bool
	EndDate               *time.Time
	EligibleForPeriodOfGrace bool
}

// ProgrammeMembership is the inbound snapshot for ProgrammeMembershipUpdated
// / Deleted events.
type ProgrammeMembership struct {
	TisID           string `validate:"required"`
	PersonID        string `validate:"required"`
	ProgrammeName   string
	ManagingDeanery string
	StartDate       *time.Time
	CojSyncedAt     *time.Time
	Curricula       []Curriculum
}

// Placement is the inbound snapshot for PlacementUpdated / Deleted events.
type Placement struct {
	TisID           string `validate:"required"`
	PersonID        string `validate:"required"`
	StartDate       *time.Time
	Type            string
	Specialty       string
	ManagingDeanery string
}

// GmcUpdate is the inbound snapshot for a GmcUpdated event.
type GmcUpdate struct {
	TraineeID string `validate:"required"`
	GmcNumber string
	GmcStatus string `validate:"required"`
	Trigger   string
}

// GmcRejected is the inbound snapshot for a GmcRejected event.
type GmcRejected struct {
	TraineeID string `validate:"required"`
	GmcNumber string
	GmcStatus string `validate:"required"`
	Trigger   string
}

// LtftUpdate is the inbound snapshot for an LtftUpdated event (both the
// trainee channel and the TPD channel consume the same shape).
type LtftUpdate struct {
	TraineeID       string `validate:"required"`
	FormRef         string `validate:"required"`
	FormName        string
	State           string `validate:"required"`
	Timestamp       time.Time
	ManagingDeanery string
	PersonalDetails map[string]interface{}
	Change          map[string]interface{}
	CurrentDetail   string
	TpdName         string
	TpdEmail        string
}
