package rules

import (
	"testing"
	"time"
)

func TestIsDeferral(t *testing.T) {
	cfg := testConfig()
	old := date(2030, 1, 15)

	if IsDeferral(old, old.AddDate(0, 0, 5), cfg) {
		t.Error("5 days later should not be a deferral (threshold is 7)")
	}
	if !IsDeferral(old, old.AddDate(0, 0, 31), cfg) {
		t.Error("31 days later should be a deferral")
	}
	if IsDeferral(old, old.AddDate(0, 0, -31), cfg) {
		t.Error("earlier start date is never a deferral")
	}
}

func TestDeferralReschedule_FutureLeadTime(t *testing.T) {
	oldStart := date(2030, 1, 15)
	oldSentAt := oldStart.Add(-60 * time.Minute)
	newStart := date(2030, 2, 15)
	now := date(2029, 12, 1)

	fireAt, immediate := DeferralReschedule(oldStart, oldSentAt, newStart, now)
	if immediate {
		t.Fatal("expected a future fire time, not immediate")
	}
	wantLeadDays := 0 // 60 minutes rounds to 0 days
	want := newStart.AddDate(0, 0, -wantLeadDays)
	if !fireAt.Equal(want) {
		t.Errorf("got %v, want %v", fireAt, want)
	}
}

func TestDeferralReschedule_ZeroLeadDaysFiresAtNewStart(t *testing.T) {
	oldStart := date(2030, 1, 15)
	oldSentAt := oldStart // leadDays == 0
	newStart := date(2030, 2, 15)
	now := date(2029, 12, 1)

	fireAt, immediate := DeferralReschedule(oldStart, oldSentAt, newStart, now)
	if immediate {
		t.Fatal("expected scheduled, not immediate")
	}
	if !fireAt.Equal(newStart) {
		t.Errorf("expected fire time to equal newStartDate, got %v", fireAt)
	}
}

func TestDeferralReschedule_PastInstantFiresImmediately(t *testing.T) {
	oldStart := date(2030, 1, 15)
	oldSentAt := oldStart.AddDate(0, 0, -30) // leadDays = 30
	newStart := date(2030, 1, 20)            // fire target = newStart - 30d, already past
	now := date(2030, 1, 10)

	fireAt, immediate := DeferralReschedule(oldStart, oldSentAt, newStart, now)
	if !immediate {
		t.Fatal("expected immediate fire")
	}
	if !fireAt.Equal(now) {
		t.Errorf("expected fire time to equal now, got %v", fireAt)
	}
}
