package cancellation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/catalog"
	"prodtrack-svc/src/internal/events"
	"prodtrack-svc/src/internal/models"
	"prodtrack-svc/src/internal/session"
)

// Catalog resolves the display labels frozen into the archive record.
type Catalog interface {
	GetWorker(ctx context.Context, id string) (*catalog.Worker, error)
	GetPost(ctx context.Context, id string) (*catalog.Post, error)
	GetOperation(ctx context.Context, id string) (*catalog.Operation, error)
}

// Service archives sessions. Cancelling is valid from both the open and the
// closed state; a closed-but-not-yet-archived session is a supported target.
type Service interface {
	Cancel(ctx context.Context, req *CancelRequest) (*CancelledSession, error)
	UpdateReason(ctx context.Context, cancellationID, reason string) error
	Delete(ctx context.Context, cancellationID string) error
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
}

type service struct {
	repo      Repository
	sessions  session.Repository
	catalog   Catalog
	publisher events.Publisher
	location  *time.Location
	now       func() time.Time
}

func NewCancellationService(repo Repository, sessions session.Repository, cat Catalog, publisher events.Publisher, location *time.Location) Service {
	return &service{
		repo:      repo,
		sessions:  sessions,
		catalog:   cat,
		publisher: publisher,
		location:  location,
		now:       time.Now,
	}
}

func (s *service) Cancel(ctx context.Context, req *CancelRequest) (*CancelledSession, error) {
	sess, err := s.sessions.FindByID(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindBySessionID(ctx, req.SessionID); err == nil {
		return nil, models.ErrSessionAlreadyCancelled
	} else if !errors.Is(err, models.ErrCancellationNotFound) {
		return nil, err
	}

	record := s.materialize(ctx, sess)
	record.Reason = strings.TrimSpace(req.Reason)
	record.CancellingUserID = req.CancellingUserID
	record.CancelledAt = s.now().In(s.location)

	archived, err := s.repo.Archive(ctx, record)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"cancellation_id": archived.ID.Hex(),
		"session_id":      req.SessionID,
		"post_id":         sess.PostID,
		"worker_id":       sess.WorkerID,
	}).Info("Session cancelled and archived")

	s.publisher.Publish(models.SessionEvent{
		Type:      models.EventSessionCancelled,
		SessionID: req.SessionID,
		PostID:    sess.PostID,
		WorkerID:  sess.WorkerID,
		Timestamp: archived.CancelledAt,
	})

	return archived, nil
}

func (s *service) UpdateReason(ctx context.Context, cancellationID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.ErrEmptyReason
	}
	return s.repo.UpdateReason(ctx, cancellationID, reason)
}

// Delete removes an archive row. It never resurrects the original session.
func (s *service) Delete(ctx context.Context, cancellationID string) error {
	return s.repo.Delete(ctx, cancellationID)
}

func (s *service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	var from, to *time.Time
	if req.Date != nil {
		dayStart := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, s.location)
		dayEnd := dayStart.AddDate(0, 0, 1)
		from, to = &dayStart, &dayEnd
	}

	records, totalCount, err := s.repo.List(ctx, req.Limit, req.Offset, from, to)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Cancellations: records,
		TotalCount:    totalCount,
		Limit:         req.Limit,
		Offset:        req.Offset,
	}, nil
}

// materialize freezes the display labels once, before the archive commit.
// A label whose reference is gone from the catalog is left blank rather
// than blocking the cancellation.
func (s *service) materialize(ctx context.Context, sess *session.Session) *CancelledSession {
	record := &CancelledSession{
		OriginalSessionID: sess.ID.Hex(),
		StartTs:           sess.StartTs,
	}

	if worker, err := s.catalog.GetWorker(ctx, sess.WorkerID); err == nil {
		record.WorkerName = worker.Name
		record.WorkerMatricula = worker.Matricula
	} else {
		logrus.WithError(err).WithField("worker_id", sess.WorkerID).Warn("Worker label unresolved for archive")
	}

	if post, err := s.catalog.GetPost(ctx, sess.PostID); err == nil {
		record.PostName = post.Name
	} else {
		logrus.WithError(err).WithField("post_id", sess.PostID).Warn("Post label unresolved for archive")
	}

	if sess.OperationID != nil {
		if operation, err := s.catalog.GetOperation(ctx, *sess.OperationID); err == nil {
			record.OperationCode = operation.Code
			record.OperationName = operation.Name
		} else {
			logrus.WithError(err).WithField("operation_id", *sess.OperationID).Warn("Operation label unresolved for archive")
		}
	}

	return record
}
