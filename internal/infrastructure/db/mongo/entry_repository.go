package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

type EntryRepository struct {
	col *mongo.Collection
}

func NewEntryRepository(db *mongo.Database) *EntryRepository {
	return &EntryRepository{col: db.Collection(collectionEntries)}
}

func (r *EntryRepository) Insert(ctx context.Context, e *domain.TimeEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, e)
	return err
}

// InsertMany writes all entries or none. Mongo has no cross-document
// atomicity outside a replica-set transaction, so a failed bulk insert is
// compensated by removing whatever part of the batch landed.
func (r *EntryRepository) InsertMany(ctx context.Context, entries []*domain.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	docs := make([]any, len(entries))
	ids := make([]string, len(entries))
	for i, e := range entries {
		docs[i] = e
		ids[i] = e.ID
	}

	_, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err == nil {
		return nil
	}

	cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
	defer cleanupCancel()
	if _, derr := r.col.DeleteMany(cleanupCtx, bson.M{"_id": bson.M{"$in": ids}}); derr != nil {
		return fmt.Errorf("insert batch: %w (compensation failed: %v)", err, derr)
	}
	return fmt.Errorf("insert batch: %w", err)
}

func (r *EntryRepository) FindByID(ctx context.Context, id, userID string) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var e domain.TimeEntry
	err := r.col.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepository) Update(ctx context.Context, e *domain.TimeEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": e.ID, "user_id": e.UserID}, e)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *EntryRepository) Delete(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// ListByUser returns the user's entries, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, q ports.EntryQuery) ([]domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.col.Find(ctx, entryFilter(userID, q), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := []domain.TimeEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *EntryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_time", Value: -1}}},
	})
	return err
}

func entryFilter(userID string, q ports.EntryQuery) bson.M {
	filter := bson.M{"user_id": userID}
	window := bson.M{}
	if !q.From.IsZero() {
		window["$gte"] = q.From.UTC()
	}
	if !q.To.IsZero() {
		window["$lte"] = q.To.UTC()
	}
	if len(window) > 0 {
		filter["start_time"] = window
	}
	return filter
}
