package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/infrastructure/directory"
)

// DirectoryRepository serves projects and tasks from Mongo. It is read-only;
// the collections are managed by the admin tooling.
type DirectoryRepository struct {
	projects *mongo.Collection
	tasks    *mongo.Collection
}

func NewDirectoryRepository(db *mongo.Database) *DirectoryRepository {
	return &DirectoryRepository{
		projects: db.Collection(collectionProjects),
		tasks:    db.Collection(collectionTasks),
	}
}

func (r *DirectoryRepository) Project(ctx context.Context, id string) (*domain.Project, error) {
	if id == domain.UnassignedProjectID {
		p := domain.UnassignedProject()
		return &p, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Project
	if err := r.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *DirectoryRepository) Task(ctx context.Context, id string) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var t domain.Task
	if err := r.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Projects lists every project by name, led by the Unassigned sentinel.
func (r *DirectoryRepository) Projects(ctx context.Context) ([]domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.projects.Find(ctx, bson.M{"_id": bson.M{"$ne": domain.UnassignedProjectID}},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var stored []domain.Project
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, err
	}
	return append([]domain.Project{domain.UnassignedProject()}, stored...), nil
}

func (r *DirectoryRepository) Search(ctx context.Context, query string) ([]domain.Project, error) {
	all, err := r.Projects(ctx)
	if err != nil {
		return nil, err
	}
	return directory.Rank(query, all), nil
}

func (r *DirectoryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "project_id", Value: 1}}})
	return err
}
