package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IndexManager manages MongoDB indexes for the orchestrator's collections.
type IndexManager struct {
	db *mongo.Database
}

// NewIndexManager creates a new IndexManager.
func NewIndexManager(db *mongo.Database) *IndexManager {
	return &IndexManager{db: db}
}

// CreateAllIndexes creates every index the orchestrator's query patterns
// rely on.
func (m *IndexManager) CreateAllIndexes(ctx context.Context) error {
	if err := m.createHistoryIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}
	if err := m.createJobIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create job indexes: %w", err)
	}
	return nil
}

func (m *IndexManager) createHistoryIndexes(ctx context.Context) error {
	collection := m.db.Collection(historyCollection)

	indexes := []mongo.IndexModel{
		// Uniqueness/lookup key for in-app dedup and cascade delete.
		{
			Keys: bson.D{
				{Key: "reference.kind", Value: 1},
				{Key: "reference.id", Value: 1},
				{Key: "type", Value: 1},
			},
			Options: options.Index().SetName("idx_history_reference_type"),
		},
		// Unread badge / inbox listing.
		{
			Keys: bson.D{
				{Key: "recipient.trainee_id", Value: 1},
				{Key: "recipient.message_kind", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_history_trainee_inbox"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_history_created"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (m *IndexManager) createJobIndexes(ctx context.Context) error {
	collection := m.db.Collection(jobCollection)

	indexes := []mongo.IndexModel{
		// The scheduler's FindDue/Lease query.
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "fire_at", Value: 1},
			},
			Options: options.Index().SetName("idx_jobs_status_fire_at"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "lease_until", Value: 1},
			},
			Options: options.Index().SetName("idx_jobs_status_lease_until"),
		},
		// Cascade delete by reference.
		{
			Keys: bson.D{
				{Key: "reference.kind", Value: 1},
				{Key: "reference.id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_jobs_reference"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// EnsureIndexes creates indexes if they don't exist (idempotent).
func (m *IndexManager) EnsureIndexes(ctx context.Context) error {
	return m.CreateAllIndexes(ctx)
}
