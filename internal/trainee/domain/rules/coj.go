package rules

import "github.com/hee-tis/trainee-notifications/internal/trainee/domain"

// CojSignedOutcome is what a CojSigned event asks the orchestrator to do:
// cancel any still-scheduled PROGRAMME_CREATED job for the membership and
// stamp the sync time for future history rows.
type CojSignedOutcome struct {
	Reference      domain.Reference
	CancelType     domain.NotificationType
	SyncedAtField  string
}

// CojSigned builds the outcome for a CojSigned event, per §4.5.8.
func CojSigned(tisID string) CojSignedOutcome {
	return CojSignedOutcome{
		Reference:     domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: tisID},
		CancelType:    domain.TypeProgrammeCreated,
		SyncedAtField: "conditionsOfJoining.syncedAt",
	}
}
