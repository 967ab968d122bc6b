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

const processLockCollection = "process_locks"

// ProcessLockRepository implements domain.ProcessLockRepository using a
// single-document-per-name collection and an atomic conditional UpdateOne
// upsert, the same lease predicate as the job lease, scoped to a named background process
// (e.g. the trigger poller) rather than a single job.
type ProcessLockRepository struct {
	collection *mongo.Collection
}

// NewProcessLockRepository creates a new ProcessLockRepository.
func NewProcessLockRepository(db *mongo.Database) *ProcessLockRepository {
	return &ProcessLockRepository{collection: db.Collection(processLockCollection)}
}

// Acquire takes or renews the named lock for owner. It succeeds when no
// lock row exists yet, when owner already holds it, or when the existing
// lease has expired.
func (r *ProcessLockRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	leaseUntil := now.Add(ttl)

	filter := bson.M{
		"_id": name,
		"$or": bson.A{
			bson.M{"owner": owner},
			bson.M{"lease_until": bson.M{"$lt": now}},
		},
	}
	update := bson.M{"$set": bson.M{"owner": owner, "lease_until": leaseUntil}}
	opts := options.Update().SetUpsert(true)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to acquire process lock: %w", err)
	}
	return result.MatchedCount > 0 || result.UpsertedCount > 0, nil
}

// Release drops owner's hold on name, a no-op if owner does not currently
// hold it (e.g. the lease already expired and was claimed elsewhere).
func (r *ProcessLockRepository) Release(ctx context.Context, name, owner string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": name, "owner": owner})
	if err != nil {
		return fmt.Errorf("failed to release process lock: %w", err)
	}
	return nil
}

var _ domain.ProcessLockRepository = (*ProcessLockRepository)(nil)
