package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tickwise/timetrack/internal/core/domain"
)

type TimerRepository struct {
	col *mongo.Collection
}

func NewTimerRepository(db *mongo.Database) *TimerRepository {
	return &TimerRepository{col: db.Collection(collectionTimers)}
}

// FindByUser returns the user's running timer. Should duplicates ever exist
// the most recently started one wins.
func (r *TimerRepository) FindByUser(ctx context.Context, userID string) (*domain.ActiveTimer, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "start_time", Value: -1}})
	var t domain.ActiveTimer
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNoActiveTimer
		}
		return nil, err
	}
	return &t, nil
}

// Insert stores a new timer. A duplicate-key error from the unique user_id
// index is reported as domain.ErrTimerRunning.
func (r *TimerRepository) Insert(ctx context.Context, t *domain.ActiveTimer) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrTimerRunning
		}
		return err
	}
	return nil
}

func (r *TimerRepository) Delete(ctx context.Context, id, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNoActiveTimer
	}
	return nil
}

func (r *TimerRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
