package session

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
	"prodtrack-svc/src/internal/models"
)

// Repository is the durable session ledger. It is the sole authority for the
// "at most one open session per (post, worker)" invariant: a partial unique
// index on (post_id, worker_id) over open documents makes the insert the
// commit-time check, so two racing opens resolve to one success and one
// duplicate-key error.
type Repository interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, s *Session) (*Session, error)
	FindByID(ctx context.Context, id string) (*Session, error)
	FindOpen(ctx context.Context, postID, workerID string) (*Session, error)
	Close(ctx context.Context, id string, end time.Time, quantity *int) (*Session, error)
	ListOpen(ctx context.Context) ([]*Session, error)
	ListByDate(ctx context.Context, from, to time.Time, page, limit int) ([]*Session, int64, error)
	QuantityClosedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type repository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *clients.MongoDB, collectionName string) Repository {
	collection := db.Database.Collection(collectionName)
	return &repository{collection: collection}
}

func (r *repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "worker_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": bson.M{"$eq": true}}),
		},
		{
			Keys: bson.D{{Key: "start_ts", Value: -1}},
		},
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to create session indexes")
		return models.ErrDatabaseConnection
	}
	return nil
}

func (r *repository) Insert(ctx context.Context, s *Session) (*Session, error) {
	s.ID = primitive.NilObjectID
	s.Open = true
	s.EndTs = nil

	result, err := r.collection.InsertOne(ctx, s)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the race: surface the winner's id.
			existing, findErr := r.FindOpen(ctx, s.PostID, s.WorkerID)
			if findErr == nil && existing != nil {
				return nil, &models.DuplicateOpenError{ExistingID: existing.ID.Hex()}
			}
			return nil, models.ErrDuplicateOpenSession
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"post_id":   s.PostID,
			"worker_id": s.WorkerID,
		}).Error("Failed to insert session")
		return nil, models.ErrDatabaseInsert
	}

	s.ID = result.InsertedID.(primitive.ObjectID)
	return s, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	var s Session
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", id).Error("Failed to get session")
		return nil, models.ErrDatabaseQuery
	}
	return &s, nil
}

func (r *repository) FindOpen(ctx context.Context, postID, workerID string) (*Session, error) {
	filter := bson.M{
		"post_id":   postID,
		"worker_id": workerID,
		"open":      true,
	}

	var s Session
	err := r.collection.FindOne(ctx, filter).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"post_id":   postID,
			"worker_id": workerID,
		}).Error("Failed to find open session")
		return nil, models.ErrDatabaseQuery
	}
	return &s, nil
}

// Close sets the end timestamp with a single conditional update on the open
// document, so a close racing another close or a cancellation loses cleanly.
func (r *repository) Close(ctx context.Context, id string, end time.Time, quantity *int) (*Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	set := bson.M{
		"end_ts": end,
		"open":   false,
	}
	if quantity != nil {
		set["quantity"] = *quantity
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var s Session
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "open": true},
		bson.M{"$set": set},
		opts,
	).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish "never existed / got cancelled" from "already closed".
			if _, findErr := r.FindByID(ctx, id); findErr == nil {
				return nil, models.ErrSessionAlreadyClosed
			}
			return nil, models.ErrSessionNotFound
		}
		logrus.WithError(err).WithField("session_id", id).Error("Failed to close session")
		return nil, models.ErrDatabaseUpdate
	}
	return &s, nil
}

func (r *repository) ListOpen(ctx context.Context) ([]*Session, error) {
	opts := options.Find().SetSort(bson.M{"start_ts": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"open": true}, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to list open sessions")
		return nil, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*Session
	if err := cursor.All(ctx, &sessions); err != nil {
		logrus.WithError(err).Error("Failed to decode open sessions")
		return nil, models.ErrDatabaseQuery
	}
	return sessions, nil
}

func (r *repository) ListByDate(ctx context.Context, from, to time.Time, page, limit int) ([]*Session, int64, error) {
	filter := bson.M{"start_ts": bson.M{"$gte": from, "$lt": to}}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count sessions")
		return nil, 0, models.ErrDatabaseQuery
	}

	skip := (page - 1) * limit
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(skip)).
		SetSort(bson.M{"start_ts": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to list sessions")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var sessions []*Session
	if err := cursor.All(ctx, &sessions); err != nil {
		logrus.WithError(err).Error("Failed to decode sessions")
		return nil, 0, models.ErrDatabaseQuery
	}
	return sessions, totalCount, nil
}

// QuantityClosedBetween sums quantities of closed sessions started in the
// window. Feeds the dashboard's daily total.
func (r *repository) QuantityClosedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"start_ts": bson.M{"$gte": from, "$lt": to},
			"open":     false,
			"quantity": bson.M{"$gt": 0},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$quantity"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		logrus.WithError(err).Error("Failed to aggregate closed quantity")
		return 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		logrus.WithError(err).Error("Failed to decode quantity aggregate")
		return 0, models.ErrDatabaseQuery
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}
