package cancellation

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

// Repository persists the cancellation archive. Archive writes the record
// and deletes the originating session in one transaction: a fault between
// the two steps is never observable.
type Repository interface {
	EnsureIndexes(ctx context.Context) error
	Archive(ctx context.Context, record *CancelledSession) (*CancelledSession, error)
	FindByID(ctx context.Context, id string) (*CancelledSession, error)
	FindBySessionID(ctx context.Context, sessionID string) (*CancelledSession, error)
	UpdateReason(ctx context.Context, id, reason string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int, from, to *time.Time) ([]*CancelledSession, int64, error)
}

type repository struct {
	client        *mongo.Client
	cancellations *mongo.Collection
	sessions      *mongo.Collection
}

func NewCancellationRepository(db *clients.MongoDB, cancellationCol, sessionCol string) Repository {
	return &repository{
		client:        db.Client,
		cancellations: db.Database.Collection(cancellationCol),
		sessions:      db.Database.Collection(sessionCol),
	}
}

func (r *repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.cancellations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "original_session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "cancelled_at", Value: -1}},
		},
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to create cancellation indexes")
		return models.ErrDatabaseConnection
	}
	return nil
}

func (r *repository) Archive(ctx context.Context, record *CancelledSession) (*CancelledSession, error) {
	sessionOID, err := primitive.ObjectIDFromHex(record.OriginalSessionID)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	mongoSession, err := r.client.StartSession()
	if err != nil {
		logrus.WithError(err).Error("Failed to start mongo session for archive")
		return nil, models.ErrDatabaseTxn
	}
	defer mongoSession.EndSession(ctx)

	callback := func(sc mongo.SessionContext) (interface{}, error) {
		record.ID = primitive.NilObjectID
		inserted, err := r.cancellations.InsertOne(sc, record)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, models.ErrSessionAlreadyCancelled
			}
			return nil, models.ErrDatabaseInsert
		}

		deleted, err := r.sessions.DeleteOne(sc, bson.M{"_id": sessionOID})
		if err != nil {
			return nil, models.ErrDatabaseDelete
		}
		if deleted.DeletedCount == 0 {
			// Session vanished between snapshot and commit; abort so the
			// archive row is rolled back too.
			return nil, models.ErrSessionNotFound
		}

		return inserted.InsertedID, nil
	}

	insertedID, err := mongoSession.WithTransaction(ctx, callback)
	if err != nil {
		if errors.Is(err, models.ErrSessionAlreadyCancelled) ||
			errors.Is(err, models.ErrSessionNotFound) {
			return nil, err
		}
		logrus.WithError(err).WithField("session_id", record.OriginalSessionID).
			Error("Archive transaction failed")
		return nil, models.ErrDatabaseTxn
	}

	record.ID = insertedID.(primitive.ObjectID)
	return record, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*CancelledSession, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidParams
	}

	var record CancelledSession
	err = r.cancellations.FindOne(ctx, bson.M{"_id": oid}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCancellationNotFound
		}
		logrus.WithError(err).WithField("cancellation_id", id).Error("Failed to get cancellation")
		return nil, models.ErrDatabaseQuery
	}
	return &record, nil
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*CancelledSession, error) {
	var record CancelledSession
	err := r.cancellations.FindOne(ctx, bson.M{"original_session_id": sessionID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrCancellationNotFound
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("Failed to query cancellation by session")
		return nil, models.ErrDatabaseQuery
	}
	return &record, nil
}

func (r *repository) UpdateReason(ctx context.Context, id, reason string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidParams
	}

	result, err := r.cancellations.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"reason": reason}},
	)
	if err != nil {
		logrus.WithError(err).WithField("cancellation_id", id).Error("Failed to update cancellation reason")
		return models.ErrDatabaseUpdate
	}
	if result.MatchedCount == 0 {
		return models.ErrCancellationNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrInvalidParams
	}

	result, err := r.cancellations.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		logrus.WithError(err).WithField("cancellation_id", id).Error("Failed to delete cancellation")
		return models.ErrDatabaseDelete
	}
	if result.DeletedCount == 0 {
		return models.ErrCancellationNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, limit, offset int, from, to *time.Time) ([]*CancelledSession, int64, error) {
	filter := bson.M{}
	if from != nil && to != nil {
		filter["cancelled_at"] = bson.M{"$gte": *from, "$lt": *to}
	}

	totalCount, err := r.cancellations.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count cancellations")
		return nil, 0, models.ErrDatabaseQuery
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(offset)).
		SetSort(bson.M{"cancelled_at": -1})

	cursor, err := r.cancellations.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to list cancellations")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var records []*CancelledSession
	if err := cursor.All(ctx, &records); err != nil {
		logrus.WithError(err).Error("Failed to decode cancellations")
		return nil, 0, models.ErrDatabaseQuery
	}
	return records, totalCount, nil
}
