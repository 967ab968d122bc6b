// Package mongodb provides MongoDB implementations of the trainee
// notification orchestrator's repositories.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/google/uuid"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
)

const historyCollection = "notification_history"

// HistoryRepository implements domain.HistoryRepository using MongoDB.
type HistoryRepository struct {
	collection *mongo.Collection
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{collection: db.Collection(historyCollection)}
}

// Create inserts a new History row.
func (r *HistoryRepository) Create(ctx context.Context, h *domain.History) error {
	_, err := r.collection.InsertOne(ctx, h)
	if err != nil {
		return fmt.Errorf("failed to create history: %w", err)
	}
	return nil
}

// Update replaces a History row, enforcing optimistic concurrency the same
// way the CRM's customer repository does. h.Version is already the
// post-transition value (domain transitions bump it themselves), so the
// row still persisted under the prior version is h.Version-1.
func (r *HistoryRepository) Update(ctx context.Context, h *domain.History) error {
	previousVersion := h.Version - 1
	h.MarkUpdated()

	filter := bson.M{"_id": h.ID, "version": previousVersion}
	result, err := r.collection.ReplaceOne(ctx, filter, h)
	if err != nil {
		return fmt.Errorf("failed to update history: %w", err)
	}
	if result.MatchedCount == 0 {
		var existing domain.History
		if err := r.collection.FindOne(ctx, bson.M{"_id": h.ID}).Decode(&existing); err == mongo.ErrNoDocuments {
			return domain.ErrHistoryNotFound
		}
		return domain.ErrVersionConflict
	}
	return nil
}

// FindByID finds a History row by id.
func (r *HistoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.History, error) {
	var h domain.History
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to find history: %w", err)
	}
	return &h, nil
}

// FindByReference finds every History row for a reference, newest first.
func (r *HistoryRepository) FindByReference(ctx context.Context, ref domain.Reference) ([]*domain.History, error) {
	filter := bson.M{"reference.kind": ref.Kind, "reference.id": ref.ID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find history by reference: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*domain.History
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode history rows: %w", err)
	}
	return rows, nil
}

// FindByReferenceAndType finds the single History row for (ref, type), the
// uniqueness key the in-app notifier and the idempotent scheduler rely on.
func (r *HistoryRepository) FindByReferenceAndType(ctx context.Context, ref domain.Reference, typ domain.NotificationType) (*domain.History, error) {
	filter := bson.M{"reference.kind": ref.Kind, "reference.id": ref.ID, "type": typ}
	var h domain.History
	err := r.collection.FindOne(ctx, filter).Decode(&h)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to find history by reference and type: %w", err)
	}
	return &h, nil
}

// List returns History rows matching filter, paginated.
func (r *HistoryRepository) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.History, error) {
	mongoFilter := bson.M{}
	if filter.Reference != nil {
		mongoFilter["reference.kind"] = filter.Reference.Kind
		mongoFilter["reference.id"] = filter.Reference.ID
	}
	if filter.Status != "" {
		mongoFilter["status"] = filter.Status
	}
	if filter.MessageKind != "" {
		mongoFilter["recipient.message_kind"] = filter.MessageKind
	}
	if filter.TraineeID != "" {
		mongoFilter["recipient.trainee_id"] = filter.TraineeID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*domain.History
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode history rows: %w", err)
	}
	return rows, nil
}

// FindUnread lists a trainee's UNREAD in-app rows, newest first.
func (r *HistoryRepository) FindUnread(ctx context.Context, traineeID string) ([]*domain.History, error) {
	filter := bson.M{
		"recipient.trainee_id":   traineeID,
		"recipient.message_kind": domain.MessageKindInApp,
		"status":                 domain.StatusUnread,
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find unread history: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*domain.History
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode history rows: %w", err)
	}
	return rows, nil
}

// CountUnread counts a trainee's UNREAD in-app rows, for the notification
// badge.
func (r *HistoryRepository) CountUnread(ctx context.Context, traineeID string) (int, error) {
	filter := bson.M{
		"recipient.trainee_id":   traineeID,
		"recipient.message_kind": domain.MessageKindInApp,
		"status":                 domain.StatusUnread,
	}
	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread history: %w", err)
	}
	return int(count), nil
}

// DeleteByReference marks every non-terminal History row for ref DELETED,
// returning how many rows were changed. Terminal rows (SENT/FAILED/DELETED)
// are left untouched, preserving the audit trail.
func (r *HistoryRepository) DeleteByReference(ctx context.Context, ref domain.Reference) (int, error) {
	filter := bson.M{
		"reference.kind": ref.Kind,
		"reference.id":   ref.ID,
		"status":         bson.M{"$nin": bson.A{domain.StatusSent, domain.StatusFailed, domain.StatusDeleted}},
	}
	update := bson.M{"$set": bson.M{"status": domain.StatusDeleted}, "$inc": bson.M{"version": 1}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to delete history by reference: %w", err)
	}
	return int(result.ModifiedCount), nil
}
