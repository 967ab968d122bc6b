package domain

import "testing"

func TestCanTransitionTo_Email(t *testing.T) {
	cases := []struct {
		from, to NotificationStatus
		want     bool
	}{
		{StatusScheduled, StatusSent, true},
		{StatusScheduled, StatusFailed, true},
		{StatusScheduled, StatusUnread, false},
		{StatusSent, StatusRead, false},
		{StatusSent, StatusDeleted, true},
		{StatusFailed, StatusDeleted, true},
		{StatusFailed, StatusSent, false},
	}
	for _, c := range cases {
		got := CanTransitionTo(MessageKindEmail, c.from, c.to)
		if got != c.want {
			t.Errorf("email %s->%s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanTransitionTo_InApp(t *testing.T) {
	cases := []struct {
		from, to NotificationStatus
		want     bool
	}{
		{StatusScheduled, StatusUnread, true},
		{StatusScheduled, StatusSent, false},
		{StatusUnread, StatusRead, true},
		{StatusUnread, StatusArchived, true},
		{StatusRead, StatusArchived, true},
		{StatusRead, StatusUnread, true},
		{StatusArchived, StatusDeleted, true},
		{StatusArchived, StatusRead, false},
	}
	for _, c := range cases {
		got := CanTransitionTo(MessageKindInApp, c.from, c.to)
		if got != c.want {
			t.Errorf("in-app %s->%s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestReference_IsValid(t *testing.T) {
	if (Reference{Kind: ReferencePlacement, ID: ""}).IsValid() {
		t.Error("empty id should be invalid")
	}
	if (Reference{Kind: "BOGUS", ID: "abc"}).IsValid() {
		t.Error("unknown kind should be invalid")
	}
	if !(Reference{Kind: ReferenceLTFT, ID: "abc"}).IsValid() {
		t.Error("valid reference should be valid")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		contact string
		want    ContactType
	}{
		{"https://example.com/lo", ContactURL},
		{"office@example.com", ContactEmail},
		{"office@example.com, other@example.com", ContactNonHref},
		{"call reception", ContactNonHref},
		{"", ContactNonHref},
	}
	for _, c := range cases {
		if got := Classify(c.contact); got != c.want {
			t.Errorf("Classify(%q) = %s, want %s", c.contact, got, c.want)
		}
	}
}

func TestResolveContact(t *testing.T) {
	list := []LocalOfficeContact{
		{Type: "LTFT_SUPPORT", Contact: "support@lo.example"},
		{Type: "TSS_SUPPORT", Contact: "tss@lo.example"},
	}
	if got := ResolveContact(list, "LTFT", "TSS_SUPPORT"); got != "tss@lo.example" {
		t.Errorf("expected fallback match, got %q", got)
	}
	if got := ResolveContact(list, "LTFT_SUPPORT", "TSS_SUPPORT"); got != "support@lo.example" {
		t.Errorf("expected preferred match, got %q", got)
	}
	if got := ResolveContact(nil, "LTFT", "TSS_SUPPORT"); got != DefaultLocalOfficeContact {
		t.Errorf("expected default, got %q", got)
	}
}

func TestTemplateBinding_WithVar(t *testing.T) {
	b := TemplateBinding{Name: "ltft", Version: "v1", Variables: map[string]interface{}{"a": 1}}
	b2 := b.WithVar("b", 2)

	if _, ok := b.Variables["b"]; ok {
		t.Error("original binding should not be mutated")
	}
	if b2.Variables["a"] != 1 || b2.Variables["b"] != 2 {
		t.Errorf("unexpected variables: %+v", b2.Variables)
	}
}
