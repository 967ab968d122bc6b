package rules

import (
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// LtftContactTypes are the local-office contact types resolved into every
// LTFT notification's template variables, per §4.5.7.
var LtftContactTypes = []string{
	domain.ContactTypeLTFT,
	domain.ContactTypeLTFTSupport,
	domain.ContactTypeSupportedReturnToTraining,
	domain.ContactTypeTSSSupport,
}

var ltftStateToType = map[string]domain.NotificationType{
	"APPROVED":    domain.TypeLtftApproved,
	"SUBMITTED":   domain.TypeLtftSubmitted,
	"UNSUBMITTED": domain.TypeLtftUnsubmitted,
	"WITHDRAWN":   domain.TypeLtftWithdrawn,
}

var ltftStateToTPDType = map[string]domain.NotificationType{
	"APPROVED":    domain.TypeLtftApprovedTPD,
	"SUBMITTED":   domain.TypeLtftSubmittedTPD,
	"UNSUBMITTED": domain.TypeLtftUnsubmittedTPD,
	"WITHDRAWN":   domain.TypeLtftWithdrawnTPD,
}

// LtftNotificationType resolves the trainee-channel type for a state.
func LtftNotificationType(state string) domain.NotificationType {
	if t, ok := ltftStateToType[state]; ok {
		return t
	}
	return domain.TypeLtftUpdated
}

// LtftTPDNotificationType resolves the TPD-channel type for a state.
func LtftTPDNotificationType(state string) domain.NotificationType {
	if t, ok := ltftStateToTPDType[state]; ok {
		return t
	}
	return domain.TypeLtftUpdatedTPD
}

// ContactEntry is the {contact, hrefType} shape threaded into LTFT template
// variables.
type ContactEntry struct {
	Contact  string             `json:"contact"`
	HrefType domain.ContactType `json:"hrefType"`
}

// BuildContactsMap resolves the four LTFT contact types into a
// type-keyed map, taking the first entry per type (or the configured
// default when none is resolved).
func BuildContactsMap(contactsByType map[string][]domain.LocalOfficeContact) map[string]ContactEntry {
	out := make(map[string]ContactEntry, len(LtftContactTypes))
	for _, t := range LtftContactTypes {
		contact := domain.DefaultLocalOfficeContact
		if list := contactsByType[t]; len(list) > 0 {
			contact = list[0].Contact
		}
		out[t] = ContactEntry{Contact: contact, HrefType: domain.Classify(contact)}
	}
	return out
}

// LtftTraineePlan builds the trainee-channel dispatch plan.
func LtftTraineePlan(evt LtftUpdate, contacts map[string]ContactEntry, now time.Time) Plan {
	ref := domain.Reference{Kind: domain.ReferenceLTFT, ID: evt.FormRef}
	return Plan{
		Type:      LtftNotificationType(evt.State),
		Reference: ref,
		FireAt:    now,
		Immediate: true,
		Variables: map[string]interface{}{
			"traineeId":       evt.TraineeID,
			"formName":        evt.FormName,
			"managingDeanery": evt.ManagingDeanery,
			"contacts":        contacts,
		},
	}
}

// LtftTPDPlan builds the TPD-channel dispatch plan, addressed solely to
// discussions.tpdEmail.
func LtftTPDPlan(evt LtftUpdate, contacts map[string]ContactEntry, now time.Time) Plan {
	ref := domain.Reference{Kind: domain.ReferenceLTFT, ID: evt.FormRef}
	return Plan{
		Type:      LtftTPDNotificationType(evt.State),
		Reference: ref,
		FireAt:    now,
		Immediate: true,
		Contact:   evt.TpdEmail,
		Variables: map[string]interface{}{
			"tpdName":         evt.TpdName,
			"tpdEmail":        evt.TpdEmail,
			"formName":        evt.FormName,
			"managingDeanery": evt.ManagingDeanery,
			"contacts":        contacts,
		},
	}
}
