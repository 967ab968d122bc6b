package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewJobID_DeterministicPerReferenceAndType(t *testing.T) {
	ref := Reference{Kind: ReferencePlacement, ID: "p-1"}
	id1 := NewJobID(ref, TypePlacementUpdatedWeek12)
	id2 := NewJobID(ref, TypePlacementUpdatedWeek12)
	if id1 != id2 {
		t.Fatalf("expected deterministic job id, got %s and %s", id1, id2)
	}

	id3 := NewJobID(ref, TypePlacementRollout2024Correction)
	if id1 == id3 {
		t.Fatal("expected different notification types to produce different job ids")
	}

	otherRef := Reference{Kind: ReferencePlacement, ID: "p-2"}
	id4 := NewJobID(otherRef, TypePlacementUpdatedWeek12)
	if id1 == id4 {
		t.Fatal("expected different references to produce different job ids")
	}
}

func TestScheduledJob_IsDue(t *testing.T) {
	now := time.Now().UTC()
	ref := Reference{Kind: ReferencePlacement, ID: "p-1"}
	job := NewScheduledJob(ref, TypePlacementUpdatedWeek12, uuid.New(), now.Add(-time.Minute))

	if !job.IsDue(now) {
		t.Fatal("expected pending job scheduled in the past to be due")
	}

	job.FireAt = now.Add(time.Hour)
	if job.IsDue(now) {
		t.Fatal("expected pending job scheduled in the future to not be due")
	}
}

func TestScheduledJob_LeaseExpiry(t *testing.T) {
	now := time.Now().UTC()
	ref := Reference{Kind: ReferencePlacement, ID: "p-1"}
	job := NewScheduledJob(ref, TypePlacementUpdatedWeek12, uuid.New(), now.Add(-time.Minute))
	job.Status = JobLeased
	expired := now.Add(-time.Second)
	job.LeaseUntil = &expired

	if !job.IsLeaseExpired(now) {
		t.Fatal("expected expired lease to be reclaimable")
	}
	if !job.IsDue(now) {
		t.Fatal("a job with an expired lease should be due again")
	}

	fresh := now.Add(time.Minute)
	job.LeaseUntil = &fresh
	if job.IsLeaseExpired(now) {
		t.Fatal("unexpired lease should not be reclaimable")
	}
}

func TestScheduledJob_RescheduleRejectsInFlight(t *testing.T) {
	ref := Reference{Kind: ReferencePlacement, ID: "p-1"}
	job := NewScheduledJob(ref, TypePlacementUpdatedWeek12, uuid.New(), time.Now())
	job.Status = JobLeased

	if err := job.Reschedule(time.Now().Add(time.Hour)); err != ErrJobInFlight {
		t.Fatalf("expected ErrJobInFlight, got %v", err)
	}
}

func TestScheduledJob_CancelRejectsFired(t *testing.T) {
	ref := Reference{Kind: ReferencePlacement, ID: "p-1"}
	job := NewScheduledJob(ref, TypePlacementUpdatedWeek12, uuid.New(), time.Now())
	job.Status = JobFired

	if err := job.Cancel(); err != ErrJobInFlight {
		t.Fatalf("expected ErrJobInFlight, got %v", err)
	}
}

func TestScheduledJob_CancelPending(t *testing.T) {
	ref := Reference{Kind: ReferencePlacement, ID: "p-1"}
	job := NewScheduledJob(ref, TypePlacementUpdatedWeek12, uuid.New(), time.Now())

	if err := job.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if job.Status != JobCancelled {
		t.Fatalf("expected CANCELLED, got %s", job.Status)
	}
}
