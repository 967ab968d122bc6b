package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

const jobCollection = "scheduled_jobs"

// JobRepository implements domain.JobRepository using MongoDB. The at-most-
// once leasing protocol is a single atomic FindOneAndUpdate per the
// distributed-lock design: a job is only claimed when it is PENDING and due,
// or LEASED with an expired lease, so two replicas racing on the same due
// job never both win.
type JobRepository struct {
	collection *mongo.Collection
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *mongo.Database) *JobRepository {
	return &JobRepository{collection: db.Collection(jobCollection)}
}

// Upsert inserts or replaces a ScheduledJob, keyed by its deterministic
// JobID.
func (r *JobRepository) Upsert(ctx context.Context, job *domain.ScheduledJob) error {
	job.UpdatedAt = time.Now().UTC()
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": job.JobID}, job, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert scheduled job: %w", err)
	}
	return nil
}

// FindByID finds a job by its deterministic id.
func (r *JobRepository) FindByID(ctx context.Context, jobID string) (*domain.ScheduledJob, error) {
	var job domain.ScheduledJob
	err := r.collection.FindOne(ctx, bson.M{"_id": jobID}).Decode(&job)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find scheduled job: %w", err)
	}
	return &job, nil
}

// FindDue lists jobs eligible for leasing: PENDING jobs whose fireAt has
// passed, or LEASED jobs whose lease has expired (a crashed worker's claim),
// oldest first so the scheduler drains the backlog in order.
func (r *JobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledJob, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"status": domain.JobPending, "fire_at": bson.M{"$lte": now}},
			bson.M{"status": domain.JobLeased, "lease_until": bson.M{"$lt": now}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "fire_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find due jobs: %w", err)
	}
	defer cursor.Close(ctx)

	var jobs []*domain.ScheduledJob
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("failed to decode due jobs: %w", err)
	}
	return jobs, nil
}

// Lease atomically claims a due job for owner until now+ttl. Returns
// nil, nil (no error) when the job is not currently leasable, e.g. another
// replica already holds an unexpired lease or it already fired.
func (r *JobRepository) Lease(ctx context.Context, jobID, owner string, ttl time.Duration) (*domain.ScheduledJob, error) {
	now := time.Now().UTC()
	leaseUntil := now.Add(ttl)

	filter := bson.M{
		"_id": jobID,
		"$or": bson.A{
			bson.M{"status": domain.JobPending, "fire_at": bson.M{"$lte": now}},
			bson.M{"status": domain.JobLeased, "lease_until": bson.M{"$lt": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":      domain.JobLeased,
			"lease_owner": owner,
			"lease_until": leaseUntil,
			"updated_at":  now,
		},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var job domain.ScheduledJob
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&job)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lease scheduled job: %w", err)
	}
	return &job, nil
}

// MarkFired transitions a leased job to FIRED, failing silently (returning
// domain.ErrJobInFlight) if owner no longer holds the lease, meaning another
// replica reclaimed it after a lease expiry race.
func (r *JobRepository) MarkFired(ctx context.Context, jobID, owner string) error {
	filter := bson.M{"_id": jobID, "status": domain.JobLeased, "lease_owner": owner}
	update := bson.M{"$set": bson.M{"status": domain.JobFired, "updated_at": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark scheduled job fired: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrJobInFlight
	}
	return nil
}

// Cancel withdraws a job that has not yet fired.
func (r *JobRepository) Cancel(ctx context.Context, jobID string) error {
	filter := bson.M{"_id": jobID, "status": bson.M{"$in": bson.A{domain.JobPending}}}
	update := bson.M{"$set": bson.M{"status": domain.JobCancelled, "updated_at": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to cancel scheduled job: %w", err)
	}
	if result.MatchedCount == 0 {
		existing, err := r.FindByID(ctx, jobID)
		if err != nil {
			return err
		}
		if existing.Status == domain.JobLeased || existing.Status == domain.JobFired {
			return domain.ErrJobInFlight
		}
	}
	return nil
}

// DeleteByReference removes every job for ref that has not yet fired,
// returning how many were removed.
func (r *JobRepository) DeleteByReference(ctx context.Context, ref domain.Reference) (int, error) {
	filter := bson.M{
		"reference.kind": ref.Kind,
		"reference.id":   ref.ID,
		"status":         bson.M{"$in": bson.A{domain.JobPending, domain.JobLeased}},
	}
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete scheduled jobs by reference: %w", err)
	}
	return int(result.DeletedCount), nil
}
