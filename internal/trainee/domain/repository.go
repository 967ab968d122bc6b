package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HistoryFilter narrows a History query. Zero-value fields are ignored.
type HistoryFilter struct {
	Reference   *Reference
	Status      NotificationStatus
	MessageKind MessageKind
	TraineeID   string
	Limit       int
	Offset      int
}

// HistoryRepository persists and queries History aggregates.
type HistoryRepository interface {
	Create(ctx context.Context, h *History) error
	Update(ctx context.Context, h *History) error
	FindByID(ctx context.Context, id uuid.UUID) (*History, error)
	FindByReference(ctx context.Context, ref Reference) ([]*History, error)
	FindByReferenceAndType(ctx context.Context, ref Reference, typ NotificationType) (*History, error)
	List(ctx context.Context, filter HistoryFilter) ([]*History, error)
	FindUnread(ctx context.Context, traineeID string) ([]*History, error)
	CountUnread(ctx context.Context, traineeID string) (int, error)
	DeleteByReference(ctx context.Context, ref Reference) (int, error)
}

// JobFilter narrows a ScheduledJob query.
type JobFilter struct {
	Status  JobStatus
	DueBy   time.Time
	Limit   int
}

// JobRepository persists ScheduledJob rows and implements the at-most-once
// leasing protocol the scheduler relies on.
type JobRepository interface {
	Upsert(ctx context.Context, job *ScheduledJob) error
	FindByID(ctx context.Context, jobID string) (*ScheduledJob, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]*ScheduledJob, error)

	// Lease atomically claims a due job for the given owner/ttl, returning
	// domain.ErrJobAlreadyScheduled-style nil,nil (no error) when another
	// replica already holds an unexpired lease; it is the single atomic
	// FindOneAndUpdate operation the distributed lock design note
	// describes.
	Lease(ctx context.Context, jobID, owner string, ttl time.Duration) (*ScheduledJob, error)

	// MarkFired transitions a leased job to FIRED, failing if the lease
	// was lost to another owner in the meantime.
	MarkFired(ctx context.Context, jobID, owner string) error

	Cancel(ctx context.Context, jobID string) error
	DeleteByReference(ctx context.Context, ref Reference) (int, error)
}

// ProcessLock is a coarse-grained mutual-exclusion row used to ensure only
// one replica runs a given named background process (e.g. the trigger
// poller) at a time, independent of any one job's lease.
type ProcessLock struct {
	Name       string    `bson:"_id"`
	Owner      string    `bson:"owner"`
	LeaseUntil time.Time `bson:"lease_until"`
}

// ProcessLockRepository manages ProcessLock rows.
type ProcessLockRepository interface {
	// Acquire attempts to take or renew the named lock for owner, returning
	// ok=false when a different, unexpired owner currently holds it.
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) (ok bool, err error)
	Release(ctx context.Context, name, owner string) error
}
