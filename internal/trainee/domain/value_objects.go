package domain

import (
	"net/mail"
	"net/url"
	"strings"
)

// NotificationStatus is the closed status enum for a History row. Email and
// in-app notifications follow distinct sub-state-machines sharing the same
// type, validated by CanTransitionTo.
type NotificationStatus string

const (
	StatusScheduled NotificationStatus = "SCHEDULED"
	StatusSent      NotificationStatus = "SENT"
	StatusFailed    NotificationStatus = "FAILED"
	StatusRead      NotificationStatus = "READ"
	StatusUnread    NotificationStatus = "UNREAD"
	StatusArchived  NotificationStatus = "ARCHIVED"
	StatusDeleted   NotificationStatus = "DELETED"
)

// IsValid reports whether s is a recognised status.
func (s NotificationStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusSent, StatusFailed, StatusRead, StatusUnread, StatusArchived, StatusDeleted:
		return true
	}
	return false
}

// emailTransitions and inAppTransitions encode the two sub-state-machines
// named in the data model: email goes SCHEDULED -> SENT | FAILED, in-app
// goes SCHEDULED -> UNREAD -> READ | ARCHIVED, both -> DELETED from any
// non-terminal state. FAILED is terminal except for DELETED.
var emailTransitions = map[NotificationStatus][]NotificationStatus{
	StatusScheduled: {StatusSent, StatusFailed, StatusDeleted},
	StatusSent:      {StatusDeleted},
	StatusFailed:    {StatusDeleted},
}

var inAppTransitions = map[NotificationStatus][]NotificationStatus{
	StatusScheduled: {StatusUnread, StatusDeleted},
	StatusUnread:    {StatusRead, StatusArchived, StatusDeleted},
	StatusRead:      {StatusArchived, StatusUnread, StatusDeleted},
	StatusArchived:  {StatusDeleted},
}

// CanTransitionTo validates a status change for the given message kind,
// rejecting with domain.ErrInvalidTransition semantics when:
//   - an email notification is given a status in {ARCHIVED, READ, UNREAD}
//   - an in-app notification is given {FAILED, SENT}
func CanTransitionTo(kind MessageKind, from, to NotificationStatus) bool {
	table := emailTransitions
	if kind == MessageKindInApp {
		table = inAppTransitions
	}
	allowed, ok := table[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ReferenceKind identifies the domain object family a Reference points at.
type ReferenceKind string

const (
	ReferenceProgrammeMembership ReferenceKind = "PROGRAMME_MEMBERSHIP"
	ReferencePlacement           ReferenceKind = "PLACEMENT"
	ReferenceLTFT                ReferenceKind = "LTFT"
)

// Reference ties a notification to the domain object it concerns, and is
// the key used for de-duplication and deletion cascades.
type Reference struct {
	Kind ReferenceKind `json:"kind" bson:"kind"`
	ID   string        `json:"id" bson:"id"`
}

// IsValid reports whether the reference has a known kind and non-empty id.
func (r Reference) IsValid() bool {
	if r.ID == "" {
		return false
	}
	switch r.Kind {
	case ReferenceProgrammeMembership, ReferencePlacement, ReferenceLTFT:
		return true
	}
	return false
}

// Recipient names who a notification goes to and how to reach them.
type Recipient struct {
	TraineeID   string      `json:"traineeId" bson:"trainee_id"`
	MessageKind MessageKind `json:"messageKind" bson:"message_kind"`
	Contact     string      `json:"contact" bson:"contact"` // email address, or traineeId for in-app
}

// TemplateBinding carries the renderer template identity and its resolved
// variables. Variables are intentionally an opaque map: the renderer SPI
// receives it untouched (Design Note: "Template variables").
type TemplateBinding struct {
	Name      string                 `json:"name" bson:"name"`
	Version   string                 `json:"version" bson:"version"`
	Variables map[string]interface{} `json:"variables" bson:"variables"`
}

// WithVar returns a shallow copy of the binding with one extra variable set.
func (b TemplateBinding) WithVar(key string, value interface{}) TemplateBinding {
	vars := make(map[string]interface{}, len(b.Variables)+1)
	for k, v := range b.Variables {
		vars[k] = v
	}
	vars[key] = value
	b.Variables = vars
	return b
}

// ContactType classifies a resolved local-office contact string.
type ContactType string

const (
	ContactURL     ContactType = "URL"
	ContactEmail   ContactType = "EMAIL"
	ContactNonHref ContactType = "NON_HREF"
)

// LocalOfficeContact is an ordered typed contact returned by the contact
// directory client.
type LocalOfficeContact struct {
	Type    string `json:"type"`
	Contact string `json:"contact"`
}

// Known local-office contact types referenced by the rules engine.
const (
	ContactTypeGmcUpdate               = "GMC_UPDATE"
	ContactTypeLTFT                    = "LTFT"
	ContactTypeLTFTSupport             = "LTFT_SUPPORT"
	ContactTypeSupportedReturnToTraining = "SUPPORTED_RETURN_TO_TRAINING"
	ContactTypeTSSSupport              = "TSS_SUPPORT"
)

// DefaultLocalOfficeContact is returned by ResolveContact when nothing
// matches.
const DefaultLocalOfficeContact = "your local office"

// normalizeContactType upper-cases and trims a contact type for comparison.
func normalizeContactType(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Classify implements the C4 classification rule: URL if syntactically an
// absolute URL, EMAIL if it matches a single-address pattern, else
// NON_HREF. A string containing multiple addresses (e.g. comma-separated)
// classifies as NON_HREF, not EMAIL.
func Classify(contact string) ContactType {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ContactNonHref
	}
	if u, err := url.ParseRequestURI(contact); err == nil && u.IsAbs() && u.Host != "" {
		return ContactURL
	}
	if strings.ContainsAny(contact, ",;") {
		return ContactNonHref
	}
	if addr, err := mail.ParseAddress(contact); err == nil && addr.Address == contact {
		return ContactEmail
	}
	return ContactNonHref
}

// ResolveContact returns the first contact in list whose type matches
// preferred; failing that, the first matching fallback; failing that,
// DefaultLocalOfficeContact.
func ResolveContact(list []LocalOfficeContact, preferred, fallback string) string {
	preferred, fallback = normalizeContactType(preferred), normalizeContactType(fallback)
	var fallbackMatch string
	for _, c := range list {
		t := normalizeContactType(c.Type)
		if t == preferred {
			return c.Contact
		}
		if fallbackMatch == "" && t == fallback {
			fallbackMatch = c.Contact
		}
	}
	if fallbackMatch != "" {
		return fallbackMatch
	}
	return DefaultLocalOfficeContact
}
