package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"prodtrack-svc/src/clients"
	"prodtrack-svc/src/internal/config"
	"prodtrack-svc/src/internal/models"
)

// Repository is the read-mostly lookup surface over the reference data.
// CRUD for these collections belongs to the back-office service, not here.
type Repository interface {
	GetWorker(ctx context.Context, id string) (*Worker, error)
	GetWorkerByBadge(ctx context.Context, badgeCode string, now time.Time) (*Worker, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context) ([]*Post, error)
	ListSubLines(ctx context.Context) ([]*SubLine, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetOperation(ctx context.Context, id string) (*Operation, error)
	GetPart(ctx context.Context, id string) (*Part, error)
	LatestConfigForWorker(ctx context.Context, workerID string) (*PostConfig, error)
	LatestConfigForPost(ctx context.Context, postID string) (*PostConfig, error)
	DeviceNameForPost(ctx context.Context, postID string) (string, error)
}

type repository struct {
	workers     *mongo.Collection
	tempBadges  *mongo.Collection
	posts       *mongo.Collection
	subLines    *mongo.Collection
	products    *mongo.Collection
	operations  *mongo.Collection
	parts       *mongo.Collection
	postConfigs *mongo.Collection
	devices     *mongo.Collection
}

func NewCatalogRepository(db *clients.MongoDB, cols *config.Collections) Repository {
	return &repository{
		workers:     db.Database.Collection(cols.Workers),
		tempBadges:  db.Database.Collection(cols.TempBadges),
		posts:       db.Database.Collection(cols.Posts),
		subLines:    db.Database.Collection(cols.SubLines),
		products:    db.Database.Collection(cols.Products),
		operations:  db.Database.Collection(cols.Operations),
		parts:       db.Database.Collection(cols.Parts),
		postConfigs: db.Database.Collection(cols.PostConfigs),
		devices:     db.Database.Collection(cols.Devices),
	}
}

func (r *repository) GetWorker(ctx context.Context, id string) (*Worker, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	var worker Worker
	err = r.workers.FindOne(ctx, bson.M{"_id": oid}).Decode(&worker)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrWorkerNotFound
		}
		logrus.WithError(err).WithField("worker_id", id).Error("Failed to get worker")
		return nil, models.ErrDatabaseQuery
	}
	return &worker, nil
}

// GetWorkerByBadge checks the temporary-badge overlay first; an expired
// temporary badge is skipped, not an error. Falls back to the permanent
// badge directory.
func (r *repository) GetWorkerByBadge(ctx context.Context, badgeCode string, now time.Time) (*Worker, error) {
	var temp TempBadge
	err := r.tempBadges.FindOne(ctx, bson.M{
		"badge_code": badgeCode,
		"expires_at": bson.M{"$gt": now},
	}).Decode(&temp)
	if err == nil {
		return r.GetWorker(ctx, temp.WorkerID)
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		logrus.WithError(err).WithField("badge_code", badgeCode).Error("Failed to query temporary badges")
		return nil, models.ErrDatabaseQuery
	}

	var worker Worker
	err = r.workers.FindOne(ctx, bson.M{"badge_code": badgeCode}).Decode(&worker)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrBadgeNotFound
		}
		logrus.WithError(err).WithField("badge_code", badgeCode).Error("Failed to get worker by badge")
		return nil, models.ErrDatabaseQuery
	}
	return &worker, nil
}

func (r *repository) GetPost(ctx context.Context, id string) (*Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	var post Post
	err = r.posts.FindOne(ctx, bson.M{"_id": oid}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrPostNotFound
		}
		logrus.WithError(err).WithField("post_id", id).Error("Failed to get post")
		return nil, models.ErrDatabaseQuery
	}
	return &post, nil
}

func (r *repository) ListPosts(ctx context.Context) ([]*Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sub_line_id", Value: 1}, {Key: "order", Value: 1}})
	cursor, err := r.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to list posts")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var posts []*Post
	if err := cursor.All(ctx, &posts); err != nil {
		logrus.WithError(err).Error("Failed to decode posts")
		return nil, models.ErrDatabaseQuery
	}
	return posts, nil
}

func (r *repository) ListSubLines(ctx context.Context) ([]*SubLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	cursor, err := r.subLines.Find(ctx, bson.M{}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to list sub-lines")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var subLines []*SubLine
	if err := cursor.All(ctx, &subLines); err != nil {
		logrus.WithError(err).Error("Failed to decode sub-lines")
		return nil, models.ErrDatabaseQuery
	}
	return subLines, nil
}

func (r *repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := r.findByID(ctx, r.products, id, &product, models.ErrProductNotFound); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) GetOperation(ctx context.Context, id string) (*Operation, error) {
	var operation Operation
	if err := r.findByID(ctx, r.operations, id, &operation, models.ErrOperationNotFound); err != nil {
		return nil, err
	}
	return &operation, nil
}

func (r *repository) GetPart(ctx context.Context, id string) (*Part, error) {
	var part Part
	if err := r.findByID(ctx, r.parts, id, &part, models.ErrPartNotFound); err != nil {
		return nil, err
	}
	return &part, nil
}

// LatestConfigForWorker picks the newest configuration naming the worker that
// also carries a product. Configurations without a product cannot start work
// and are ignored.
func (r *repository) LatestConfigForWorker(ctx context.Context, workerID string) (*PostConfig, error) {
	filter := bson.M{
		"worker_id":  workerID,
		"product_id": bson.M{"$nin": bson.A{nil, ""}},
	}
	opts := options.FindOne().SetSort(bson.M{"updated_at": -1})

	var cfg PostConfig
	err := r.postConfigs.FindOne(ctx, filter, opts).Decode(&cfg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNoPostResolvable
		}
		logrus.WithError(err).WithField("worker_id", workerID).Error("Failed to get post config for worker")
		return nil, models.ErrDatabaseQuery
	}
	return &cfg, nil
}

func (r *repository) LatestConfigForPost(ctx context.Context, postID string) (*PostConfig, error) {
	opts := options.FindOne().SetSort(bson.M{"updated_at": -1})

	var cfg PostConfig
	err := r.postConfigs.FindOne(ctx, bson.M{"post_id": postID}, opts).Decode(&cfg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNoProductConfigured
		}
		logrus.WithError(err).WithField("post_id", postID).Error("Failed to get post config")
		return nil, models.ErrDatabaseQuery
	}
	return &cfg, nil
}

func (r *repository) DeviceNameForPost(ctx context.Context, postID string) (string, error) {
	var device Device
	err := r.devices.FindOne(ctx, bson.M{"post_id": postID}).Decode(&device)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		logrus.WithError(err).WithField("post_id", postID).Error("Failed to get device for post")
		return "", models.ErrDatabaseQuery
	}
	return device.Name, nil
}

func (r *repository) findByID(ctx context.Context, col *mongo.Collection, id string, out interface{}, notFound error) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidParams
	}

	err = col.FindOne(ctx, bson.M{"_id": oid}).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return notFound
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"collection": col.Name(),
			"id":         id,
		}).Error("Failed to find document")
		return models.ErrDatabaseQuery
	}
	return nil
}
