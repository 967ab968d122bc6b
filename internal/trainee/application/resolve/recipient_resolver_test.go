package resolve

import (
	"context"
	"testing"

	"github.com/hee-tis/trainee-notifications/internal/trainee/application/ports"
)

type fakeIdentity struct {
	rec *ports.IdentityRecord
	err error
}

func (f fakeIdentity) GetIdentity(ctx context.Context, traineeID string) (*ports.IdentityRecord, error) {
	return f.rec, f.err
}

type fakeProfile struct {
	rec *ports.ProfileRecord
	err error
}

func (f fakeProfile) GetProfile(ctx context.Context, traineeID string) (*ports.ProfileRecord, error) {
	return f.rec, f.err
}

func TestResolve_NilWhenProfileMissing(t *testing.T) {
	r := NewResolver(fakeIdentity{rec: &ports.IdentityRecord{Registered: true}}, fakeProfile{rec: nil})
	u, err := r.Resolve(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Fatalf("expected nil UserDetails, got %+v", u)
	}
}

func TestResolve_PrefersIdentityEmailAndNames(t *testing.T) {
	r := NewResolver(
		fakeIdentity{rec: &ports.IdentityRecord{Registered: true, Email: "identity@x.com", GivenName: "Ida"}},
		fakeProfile{rec: &ports.ProfileRecord{Email: "profile@x.com", GivenName: "Pete", FamilyName: "Smith", GmcNumber: " 1234567 ", Roles: []string{"TRAINEE"}}},
	)
	u, err := r.Resolve(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Email != "identity@x.com" {
		t.Errorf("expected identity email to win, got %s", u.Email)
	}
	if u.GivenName != "Ida" {
		t.Errorf("expected identity given name to win, got %s", u.GivenName)
	}
	if u.FamilyName != "Smith" {
		t.Errorf("expected profile family name fallback, got %s", u.FamilyName)
	}
	if u.GmcNumber != "1234567" {
		t.Errorf("expected trimmed gmc number, got %q", u.GmcNumber)
	}
	if !u.Registered {
		t.Error("expected registered true")
	}
}

func TestResolve_FallsBackWhenIdentityAbsent(t *testing.T) {
	r := NewResolver(fakeIdentity{rec: nil}, fakeProfile{rec: &ports.ProfileRecord{Email: "profile@x.com"}})
	u, err := r.Resolve(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Registered {
		t.Error("expected registered false when identity absent")
	}
	if u.Email != "profile@x.com" {
		t.Errorf("expected profile email fallback, got %s", u.Email)
	}
}

func TestIsValidGmc(t *testing.T) {
	if !IsValidGmc("1234567") {
		t.Error("expected 7 digits to be valid")
	}
	if IsValidGmc("123456") || IsValidGmc("12345678") || IsValidGmc("abcdefg") {
		t.Error("expected non-7-digit strings to be invalid")
	}
}

func TestHasDummyRole(t *testing.T) {
	dummy := map[string]struct{}{"DUMMY_RECORD": {}}
	u := &UserDetails{Roles: []string{"TRAINEE", "DUMMY_RECORD"}}
	if !HasDummyRole(u, dummy) {
		t.Error("expected dummy role detected")
	}
	if HasDummyRole(nil, dummy) {
		t.Error("expected nil user to have no dummy role")
	}
}
