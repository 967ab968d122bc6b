// Package ports declares the outward-facing SPIs the application layer
// depends on: identity/profile lookups, eligibility checks, the contact
// directory, template rendering, transport and event publication. Each is
// consumed as an interface here and implemented under infrastructure/.
package ports

import (
	"context"
	"time"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

// IdentityRecord is the authoritative identity store's view of a trainee.
type IdentityRecord struct {
	Registered bool
	Email      string
	GivenName  string
	FamilyName string
}

// ProfileRecord is the profile store's view of a trainee.
type ProfileRecord struct {
	Title      string
	Email      string
	GivenName  string
	FamilyName string
	GmcNumber  string
	Roles      []string
}

// IdentityStore resolves the authoritative registration/email record.
type IdentityStore interface {
	GetIdentity(ctx context.Context, traineeID string) (*IdentityRecord, error)
}

// ProfileStore resolves trainee profile data.
type ProfileStore interface {
	GetProfile(ctx context.Context, traineeID string) (*ProfileRecord, error)
}

// EligibilitySPI answers the messaging-controller eligibility predicates
// named in §4.3.
type EligibilitySPI interface {
	IsValidRecipient(ctx context.Context, personID string, kind domain.MessageKind) (bool, error)
	IsProgrammeMembershipNewStarter(ctx context.Context, personID, tisID string) (bool, error)
	IsProgrammeMembershipInPilot2024(ctx context.Context, personID, tisID string) (bool, error)
	IsProgrammeMembershipInRollout2024(ctx context.Context, personID, tisID string) (bool, error)
	IsPlacementInPilot2024(ctx context.Context, personID, tisID string) (bool, error)
	IsPlacementInRollout2024(ctx context.Context, personID, tisID string) (bool, error)
	IsMessagingEnabled(ctx context.Context, personID string) (bool, error)
}

// ContactDirectory is the C4 client interface.
type ContactDirectory interface {
	ListContacts(ctx context.Context, localOffice string) ([]domain.LocalOfficeContact, error)
	ListTraineeContacts(ctx context.Context, traineeID, contactType string) ([]domain.LocalOfficeContact, error)
}

// TemplateRenderer renders a template id + resolved variable map into a
// deliverable body.
type TemplateRenderer interface {
	TemplatePath(kind domain.MessageKind, templateName, version string) string
	Render(ctx context.Context, templatePath string, variables map[string]interface{}) (string, error)
}

// TransportResult is returned by TransportSPI.Send.
type TransportResult struct {
	Delivered bool
	Detail    string
}

// TransportSPI delivers a rendered notification, or records it without
// delivery when justLog is set.
type TransportSPI interface {
	Send(ctx context.Context, personID string, address *string, typ domain.NotificationType, templateVersion string, variables map[string]interface{}, ref *domain.Reference, justLog bool) (*TransportResult, error)
}

// BroadcastPublisher is the C2 contract: publish a lifecycle event for
// every History create/status-change/delete.
type BroadcastPublisher interface {
	PublishChanged(ctx context.Context, h *domain.History) error
	PublishDeleted(ctx context.Context, historyID string) error
}

// Clock abstracts "now" so the application layer's decisions stay
// deterministic and testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
