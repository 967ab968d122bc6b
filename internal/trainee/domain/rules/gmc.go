package rules

import (
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// GmcUpdatedPlans builds one GMC_UPDATED plan per distinct email contact
// among loContacts, skipping non-email entries, per §4.5.6.
func GmcUpdatedPlans(evt GmcUpdate, loContacts []domain.LocalOfficeContact, now time.Time) []Plan {
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: evt.TraineeID}
	emails := distinctEmails(loContacts)

	plans := make([]Plan, 0, len(emails))
	for _, email := range emails {
		plans = append(plans, Plan{
			Type:      domain.TypeGmcUpdated,
			Reference: ref,
			FireAt:    now,
			Immediate: true,
			Variables: map[string]interface{}{
				"traineeId": evt.TraineeID,
				"gmcNumber": evt.GmcNumber,
				"gmcStatus": evt.GmcStatus,
				"recipient": email,
			},
		})
	}
	return plans
}

// GmcRejectedPlans builds GMC_REJECTED_LO plans for each distinct LO
// contact and one GMC_REJECTED_TRAINEE plan threaded with the list of LO
// addresses contacted, per §4.5.6.
func GmcRejectedPlans(evt GmcRejected, loContacts []domain.LocalOfficeContact, now time.Time) []Plan {
	ref := domain.Reference{Kind: domain.ReferenceProgrammeMembership, ID: evt.TraineeID}
	emails := distinctEmails(loContacts)

	plans := make([]Plan, 0, len(emails)+1)
	for _, email := range emails {
		plans = append(plans, Plan{
			Type:      domain.TypeGmcRejectedLO,
			Reference: ref,
			FireAt:    now,
			Immediate: true,
			Variables: map[string]interface{}{
				"traineeId": evt.TraineeID,
				"gmcNumber": evt.GmcNumber,
				"recipient": email,
			},
		})
	}
	plans = append(plans, Plan{
		Type:      domain.TypeGmcRejectedTrainee,
		Reference: ref,
		FireAt:    now,
		Immediate: true,
		Variables: map[string]interface{}{
			"traineeId": evt.TraineeID,
			"gmcNumber": evt.GmcNumber,
			"cc_of":     emails,
		},
	})
	return plans
}

// distinctEmails filters contacts to unique, email-classified addresses.
func distinctEmails(contacts []domain.LocalOfficeContact) []string {
	seen := make(map[string]struct{}, len(contacts))
	var emails []string
	for _, c := range contacts {
		if domain.Classify(c.Contact) != domain.ContactEmail {
			continue
		}
		if _, dup := seen[c.Contact]; dup {
			continue
		}
		seen[c.Contact] = struct{}{}
		emails = append(emails, c.Contact)
	}
	return emails
}
