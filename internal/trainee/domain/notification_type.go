package domain

import "strings"

// MessageKind is the delivery medium for a NotificationType.
type MessageKind string

const (
	MessageKindEmail MessageKind = "EMAIL"
	MessageKindInApp MessageKind = "IN_APP"
)

// NotificationFamily groups related notification types for reporting and
// rule dispatch.
type NotificationFamily string

const (
	FamilyProgrammeLifecycle NotificationFamily = "PROGRAMME_LIFECYCLE"
	FamilyProgrammeReminder  NotificationFamily = "PROGRAMME_REMINDER"
	FamilyProgrammeEndOfTraining NotificationFamily = "PROGRAMME_END_OF_TRAINING"
	FamilyPlacement          NotificationFamily = "PLACEMENT"
	FamilyInAppProgramme     NotificationFamily = "IN_APP_PROGRAMME"
	FamilyRegulator          NotificationFamily = "REGULATOR"
	FamilyLTFT               NotificationFamily = "LTFT"
)

// NotificationType is a closed tagged-variant enum: every value carries a
// template name, a message kind, and a family via notificationTypeInfo,
// rather than through inheritance. Rules in package rules switch on this tag.
type NotificationType string

const (
	TypeProgrammeCreated NotificationType = "PROGRAMME_CREATED"
	TypeProgrammeDayOne  NotificationType = "PROGRAMME_DAY_ONE"

	TypeProgrammeUpdatedWeek12 NotificationType = "PROGRAMME_UPDATED_WEEK_12"
	TypeProgrammeUpdatedWeek8  NotificationType = "PROGRAMME_UPDATED_WEEK_8"
	TypeProgrammeUpdatedWeek4  NotificationType = "PROGRAMME_UPDATED_WEEK_4"
	TypeProgrammeUpdatedWeek2  NotificationType = "PROGRAMME_UPDATED_WEEK_2"
	TypeProgrammeUpdatedWeek1  NotificationType = "PROGRAMME_UPDATED_WEEK_1"
	TypeProgrammeUpdatedWeek0  NotificationType = "PROGRAMME_UPDATED_WEEK_0"

	TypeProgrammePogMonth12 NotificationType = "PROGRAMME_POG_MONTH_12"
	TypeProgrammePogMonth6  NotificationType = "PROGRAMME_POG_MONTH_6"

	TypePlacementUpdatedWeek12        NotificationType = "PLACEMENT_UPDATED_WEEK_12"
	TypePlacementRollout2024Correction NotificationType = "PLACEMENT_ROLLOUT_2024_CORRECTION"

	TypeEPortfolio         NotificationType = "E_PORTFOLIO"
	TypeIndemnityInsurance NotificationType = "INDEMNITY_INSURANCE"
	TypeLTFT               NotificationType = "LTFT"
	TypeDeferral           NotificationType = "DEFERRAL"
	TypeSponsorship        NotificationType = "SPONSORSHIP"

	TypeGmcUpdated        NotificationType = "GMC_UPDATED"
	TypeGmcRejectedLO     NotificationType = "GMC_REJECTED_LO"
	TypeGmcRejectedTrainee NotificationType = "GMC_REJECTED_TRAINEE"

	TypeLtftApproved      NotificationType = "LTFT_APPROVED"
	TypeLtftSubmitted     NotificationType = "LTFT_SUBMITTED"
	TypeLtftUnsubmitted   NotificationType = "LTFT_UNSUBMITTED"
	TypeLtftWithdrawn     NotificationType = "LTFT_WITHDRAWN"
	TypeLtftUpdated       NotificationType = "LTFT_UPDATED"
	TypeLtftApprovedTPD   NotificationType = "LTFT_APPROVED_TPD"
	TypeLtftSubmittedTPD  NotificationType = "LTFT_SUBMITTED_TPD"
	TypeLtftUnsubmittedTPD NotificationType = "LTFT_UNSUBMITTED_TPD"
	TypeLtftWithdrawnTPD  NotificationType = "LTFT_WITHDRAWN_TPD"
	TypeLtftUpdatedTPD    NotificationType = "LTFT_UPDATED_TPD"
)

type typeInfo struct {
	templateName string
	messageKind  MessageKind
	family       NotificationFamily
	// directAddress marks types whose recipient.contact is fixed at plan
	// time (e.g. discussions.tpdEmail) rather than the trainee's own
	// address, so the dispatch worker must not re-resolve it via identity.
	directAddress bool
}

// notificationTypeInfo is the lookup table backing NotificationType's
// methods. Adding a new type means adding one row here, not a new Go type.
var notificationTypeInfo = map[NotificationType]typeInfo{
	TypeProgrammeCreated: {"programme_created", MessageKindEmail, FamilyProgrammeLifecycle, false},
	TypeProgrammeDayOne:  {"programme_day_one", MessageKindEmail, FamilyProgrammeLifecycle, false},

	TypeProgrammeUpdatedWeek12: {"programme_updated_week_12", MessageKindEmail, FamilyProgrammeReminder, false},
	TypeProgrammeUpdatedWeek8:  {"programme_updated_week_8", MessageKindEmail, FamilyProgrammeReminder, false},
	TypeProgrammeUpdatedWeek4:  {"programme_updated_week_4", MessageKindEmail, FamilyProgrammeReminder, false},
	TypeProgrammeUpdatedWeek2:  {"programme_updated_week_2", MessageKindEmail, FamilyProgrammeReminder, false},
	TypeProgrammeUpdatedWeek1:  {"programme_updated_week_1", MessageKindEmail, FamilyProgrammeReminder, false},
	TypeProgrammeUpdatedWeek0:  {"programme_updated_week_0", MessageKindEmail, FamilyProgrammeReminder, false},

	TypeProgrammePogMonth12: {"programme_pog_month_12", MessageKindEmail, FamilyProgrammeEndOfTraining, false},
	TypeProgrammePogMonth6:  {"programme_pog_month_6", MessageKindEmail, FamilyProgrammeEndOfTraining, false},

	TypePlacementUpdatedWeek12:         {"placement_updated_week_12", MessageKindEmail, FamilyPlacement, false},
	TypePlacementRollout2024Correction: {"placement_rollout_2024_correction", MessageKindEmail, FamilyPlacement, false},

	TypeEPortfolio:         {"e_portfolio", MessageKindInApp, FamilyInAppProgramme, false},
	TypeIndemnityInsurance: {"indemnity_insurance", MessageKindInApp, FamilyInAppProgramme, false},
	TypeLTFT:               {"ltft", MessageKindInApp, FamilyInAppProgramme, false},
	TypeDeferral:           {"deferral", MessageKindInApp, FamilyInAppProgramme, false},
	TypeSponsorship:        {"sponsorship", MessageKindInApp, FamilyInAppProgramme, false},

	TypeGmcUpdated:         {"gmc_updated", MessageKindEmail, FamilyRegulator, false},
	TypeGmcRejectedLO:      {"gmc_rejected_lo", MessageKindEmail, FamilyRegulator, false},
	TypeGmcRejectedTrainee: {"gmc_rejected_trainee", MessageKindEmail, FamilyRegulator, false},

	TypeLtftApproved:       {"ltft_approved", MessageKindEmail, FamilyLTFT, false},
	TypeLtftSubmitted:      {"ltft_submitted", MessageKindEmail, FamilyLTFT, false},
	TypeLtftUnsubmitted:    {"ltft_unsubmitted", MessageKindEmail, FamilyLTFT, false},
	TypeLtftWithdrawn:      {"ltft_withdrawn", MessageKindEmail, FamilyLTFT, false},
	TypeLtftUpdated:        {"ltft_updated", MessageKindEmail, FamilyLTFT, false},
	TypeLtftApprovedTPD:    {"ltft_approved_tpd", MessageKindEmail, FamilyLTFT, true},
	TypeLtftSubmittedTPD:   {"ltft_submitted_tpd", MessageKindEmail, FamilyLTFT, true},
	TypeLtftUnsubmittedTPD: {"ltft_unsubmitted_tpd", MessageKindEmail, FamilyLTFT, true},
	TypeLtftWithdrawnTPD:   {"ltft_withdrawn_tpd", MessageKindEmail, FamilyLTFT, true},
	TypeLtftUpdatedTPD:     {"ltft_updated_tpd", MessageKindEmail, FamilyLTFT, true},
}

// IsValid reports whether t is a recognised notification type.
func (t NotificationType) IsValid() bool {
	_, ok := notificationTypeInfo[t]
	return ok
}

// TemplateName returns the renderer template id for this type.
func (t NotificationType) TemplateName() string {
	return notificationTypeInfo[t].templateName
}

// MessageKind returns the delivery medium for this type.
func (t NotificationType) MessageKind() MessageKind {
	return notificationTypeInfo[t].messageKind
}

// Family returns the reporting family for this type.
func (t NotificationType) Family() NotificationFamily {
	return notificationTypeInfo[t].family
}

// IsInApp reports whether this type is delivered in-app rather than email.
func (t NotificationType) IsInApp() bool {
	return t.MessageKind() == MessageKindInApp
}

// IsDirectAddress reports whether this type's recipient.contact is fixed at
// plan time rather than resolved from the trainee's own identity, e.g. the
// LTFT TPD channel's discussions.tpdEmail.
func (t NotificationType) IsDirectAddress() bool {
	return notificationTypeInfo[t].directAddress
}

// ProgrammeReminderWeeks lists the week offsets reminders fire at, in the
// order the rules engine evaluates them.
var ProgrammeReminderWeeks = []struct {
	Weeks int
	Type  NotificationType
}{
	{12, TypeProgrammeUpdatedWeek12},
	{8, TypeProgrammeUpdatedWeek8},
	{4, TypeProgrammeUpdatedWeek4},
	{2, TypeProgrammeUpdatedWeek2},
	{1, TypeProgrammeUpdatedWeek1},
	{0, TypeProgrammeUpdatedWeek0},
}

// ProgrammeCreateTimeInAppTypes are the in-app notifications owed at
// programme-create time.
var ProgrammeCreateTimeInAppTypes = []NotificationType{
	TypeEPortfolio, TypeIndemnityInsurance, TypeLTFT, TypeDeferral, TypeSponsorship,
}

// ParseNotificationType parses a raw string into a NotificationType.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", NewValidationError("type", "unknown notification type", "INVALID_TYPE")
	}
	return t, nil
}
