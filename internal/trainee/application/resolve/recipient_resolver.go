// Package resolve implements the Recipient Resolver (C3): merging the
// identity store and profile store into a single UserDetails view, plus
// the GMC-validity and dummy-role predicates the rules engine consumes.
package resolve

import (
	"context"
	"regexp"
	"strings"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
)

// UserDetails is the merged view of a trainee produced by Resolve.
type UserDetails struct {
	TraineeID  string
	Registered bool
	Email      string
	Title      string
	GivenName  string
	FamilyName string
	GmcNumber  string
	Roles      []string
}

var gmcPattern = regexp.MustCompile(`^[0-9]{7}$`)

// IsValidGmc reports whether s is a well-formed seven-digit GMC number.
func IsValidGmc(s string) bool {
	return gmcPattern.MatchString(s)
}

// Resolver merges IdentityStore and ProfileStore lookups into a UserDetails
// record, per §4.3.
type Resolver struct {
	Identity ports.IdentityStore
	Profile  ports.ProfileStore
}

// NewResolver builds a Resolver.
func NewResolver(identity ports.IdentityStore, profile ports.ProfileStore) *Resolver {
	return &Resolver{Identity: identity, Profile: profile}
}

// Resolve merges the two stores. It returns (nil, nil) when the profile
// store has no record — identity alone is insufficient, per spec.
func (r *Resolver) Resolve(ctx context.Context, traineeID string) (*UserDetails, error) {
	profile, err := r.Profile.GetProfile(ctx, traineeID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}

	identity, err := r.Identity.GetIdentity(ctx, traineeID)
	if err != nil {
		return nil, err
	}

	u := &UserDetails{
		TraineeID: traineeID,
		Title:     profile.Title,
		Roles:     profile.Roles,
		GmcNumber: strings.TrimSpace(profile.GmcNumber),
	}

	if identity != nil {
		u.Registered = identity.Registered
	}

	u.Email = firstNonBlank(identityEmail(identity), profile.Email)
	u.GivenName = firstNonBlank(identityGivenName(identity), profile.GivenName)
	u.FamilyName = firstNonBlank(identityFamilyName(identity), profile.FamilyName)

	return u, nil
}

// HasDummyRole reports whether u carries any role in the configured
// dummy-role set.
func HasDummyRole(u *UserDetails, dummyRoles map[string]struct{}) bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if _, ok := dummyRoles[role]; ok {
			return true
		}
	}
	return false
}

func identityEmail(i *ports.IdentityRecord) string {
	if i == nil {
		return ""
	}
	return i.Email
}

func identityGivenName(i *ports.IdentityRecord) string {
	if i == nil {
		return ""
	}
	return i.GivenName
}

func identityFamilyName(i *ports.IdentityRecord) string {
	if i == nil {
		return ""
	}
	return i.FamilyName
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
