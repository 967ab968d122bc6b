package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks a ScheduledJob through its at-most-once firing lifecycle.
type JobStatus string

const (
	JobPending  JobStatus = "PENDING"
	JobLeased   JobStatus = "LEASED"
	JobFired    JobStatus = "FIRED"
	JobCancelled JobStatus = "CANCELLED"
)

// ScheduledJob is the durable trigger row a poller drains: it carries
// everything needed to re-derive and dispatch a History row without
// depending on in-memory state, so the orchestrator can restart or scale
// out horizontally without double-firing or losing work.
type ScheduledJob struct {
	JobID     string    `json:"jobId" bson:"_id"`
	HistoryID uuid.UUID `json:"historyId" bson:"history_id"`
	Reference Reference `json:"reference" bson:"reference"`
	FireAt    time.Time `json:"fireAt" bson:"fire_at"`
	Status    JobStatus `json:"status" bson:"status"`

	LeaseOwner string     `json:"leaseOwner,omitempty" bson:"lease_owner,omitempty"`
	LeaseUntil *time.Time `json:"leaseUntil,omitempty" bson:"lease_until,omitempty"`

	Attempts  int       `json:"attempts" bson:"attempts"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// JobID is deterministic from (reference, notification type): scheduling
// the same notification twice for the same reference yields the same job
// id, so re-ingesting an already-handled event is naturally idempotent
// rather than needing a separate dedupe table.
func NewJobID(ref Reference, typ NotificationType) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", ref.Kind, ref.ID, typ)))
	return hex.EncodeToString(sum[:16])
}

// NewScheduledJob builds a pending job for a History row.
func NewScheduledJob(ref Reference, typ NotificationType, historyID uuid.UUID, fireAt time.Time) *ScheduledJob {
	now := time.Now().UTC()
	return &ScheduledJob{
		JobID:     NewJobID(ref, typ),
		HistoryID: historyID,
		Reference: ref,
		FireAt:    fireAt,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLeaseExpired reports whether a LEASED job's lease has lapsed, meaning
// a crashed worker's claim can be reclaimed by another replica.
func (j *ScheduledJob) IsLeaseExpired(now time.Time) bool {
	return j.Status == JobLeased && (j.LeaseUntil == nil || j.LeaseUntil.Before(now))
}

// IsDue reports whether the job is eligible to be leased and fired.
func (j *ScheduledJob) IsDue(now time.Time) bool {
	if j.Status == JobPending && !j.FireAt.After(now) {
		return true
	}
	return j.IsLeaseExpired(now)
}

// Reschedule moves a pending job's fire time earlier or later, e.g. when a
// programme membership's start date changes before the job has fired.
// Firing jobs (LEASED/FIRED) cannot be rescheduled.
func (j *ScheduledJob) Reschedule(fireAt time.Time) error {
	if j.Status != JobPending {
		return ErrJobInFlight
	}
	j.FireAt = fireAt
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel withdraws a pending job, e.g. when its referenced object is
// deleted before the notification was due.
func (j *ScheduledJob) Cancel() error {
	if j.Status == JobLeased || j.Status == JobFired {
		return ErrJobInFlight
	}
	j.Status = JobCancelled
	j.UpdatedAt = time.Now().UTC()
	return nil
}
