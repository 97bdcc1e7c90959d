package session

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/catalog"
	"prodtrack-svc/src/internal/events"
	"prodtrack-svc/src/internal/models"
)

// Catalog is the slice of reference data the lifecycle manager needs.
type Catalog interface {
	GetPost(ctx context.Context, id string) (*catalog.Post, error)
	GetWorker(ctx context.Context, id string) (*catalog.Worker, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	LatestConfigForPost(ctx context.Context, postID string) (*catalog.PostConfig, error)
	LatestConfigForWorker(ctx context.Context, workerID string) (*catalog.PostConfig, error)
	DeviceNameForPost(ctx context.Context, postID string) (string, error)
}

// Service governs the open/close state machine for sessions.
type Service interface {
	Open(ctx context.Context, req *OpenRequest) (*Session, error)
	Close(ctx context.Context, req *CloseRequest) (*CloseResult, error)
	ResolveOpen(ctx context.Context, sessionID, postID, workerID string) (*Session, error)
	ListOpen(ctx context.Context) ([]*Session, error)
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
}

type service struct {
	repo      Repository
	catalog   Catalog
	publisher events.Publisher
	location  *time.Location
	now       func() time.Time
}

func NewSessionService(repo Repository, cat Catalog, publisher events.Publisher, location *time.Location) Service {
	return &service{
		repo:      repo,
		catalog:   cat,
		publisher: publisher,
		location:  location,
		now:       time.Now,
	}
}

func (s *service) Open(ctx context.Context, req *OpenRequest) (*Session, error) {
	if req.PostID == "" && req.WorkerID == "" {
		return nil, models.ErrInvalidParams
	}

	if err := s.fillDefaults(ctx, req); err != nil {
		return nil, err
	}

	worker, err := s.catalog.GetWorker(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}
	if !worker.Active {
		return nil, models.ErrWorkerInactive
	}

	if _, err := s.catalog.GetPost(ctx, req.PostID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}

	// Friendly pre-check; the store's unique index is the real gate.
	if existing, err := s.repo.FindOpen(ctx, req.PostID, req.WorkerID); err == nil {
		return nil, &models.DuplicateOpenError{ExistingID: existing.ID.Hex()}
	} else if !errors.Is(err, models.ErrSessionNotFound) {
		return nil, err
	}

	sess := &Session{
		PostID:         req.PostID,
		WorkerID:       req.WorkerID,
		ProductID:      req.ProductID,
		OperationID:    req.OperationID,
		PartID:         req.PartID,
		ProductionCode: req.ProductionCode,
		Comment:        req.Comment,
		Quantity:       req.Quantity,
		StartTs:        s.now().In(s.location),
		Open:           true,
	}

	if name, err := s.catalog.DeviceNameForPost(ctx, req.PostID); err == nil && name != "" {
		sess.DeviceName = &name
	}

	created, err := s.repo.Insert(ctx, sess)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"session_id": created.ID.Hex(),
		"post_id":    created.PostID,
		"worker_id":  created.WorkerID,
	}).Info("Session opened")

	s.publisher.Publish(models.SessionEvent{
		Type:      models.EventSessionOpened,
		SessionID: created.ID.Hex(),
		PostID:    created.PostID,
		WorkerID:  created.WorkerID,
		Timestamp: created.StartTs,
	})

	return created, nil
}

func (s *service) Close(ctx context.Context, req *CloseRequest) (*CloseResult, error) {
	id := req.SessionID
	if id == "" {
		if req.PostID == "" || req.WorkerID == "" {
			return nil, models.ErrInvalidParams
		}
		open, err := s.repo.FindOpen(ctx, req.PostID, req.WorkerID)
		if err != nil {
			return nil, err
		}
		id = open.ID.Hex()
	}

	end := s.now().In(s.location)
	closed, err := s.repo.Close(ctx, id, end, req.Quantity)
	if err != nil {
		return nil, err
	}

	duration := DurationMinutes(closed.StartTs, *closed.EndTs)

	logrus.WithFields(logrus.Fields{
		"session_id":       closed.ID.Hex(),
		"post_id":          closed.PostID,
		"worker_id":        closed.WorkerID,
		"duration_minutes": duration,
	}).Info("Session closed")

	s.publisher.Publish(models.SessionEvent{
		Type:      models.EventSessionClosed,
		SessionID: closed.ID.Hex(),
		PostID:    closed.PostID,
		WorkerID:  closed.WorkerID,
		Timestamp: end,
	})

	return &CloseResult{Session: closed, DurationMinutes: duration}, nil
}

// ResolveOpen finds the open session either by explicit id or by the
// (post, worker) pair. A closed session is not resolvable.
func (s *service) ResolveOpen(ctx context.Context, sessionID, postID, workerID string) (*Session, error) {
	if sessionID != "" {
		sess, err := s.repo.FindByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !sess.Open {
			return nil, models.ErrSessionNotFound
		}
		return sess, nil
	}

	if postID == "" || workerID == "" {
		return nil, models.ErrInvalidParams
	}
	return s.repo.FindOpen(ctx, postID, workerID)
}

func (s *service) ListOpen(ctx context.Context) ([]*Session, error) {
	return s.repo.ListOpen(ctx)
}

func (s *service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.Limit > 100 {
		req.Limit = 100
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	from := time.Date(req.Date.Year(), req.Date.Month(), req.Date.Day(), 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 0, 1)

	sessions, totalCount, err := s.repo.ListByDate(ctx, from, to, req.Page, req.Limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to list sessions by date")
		return nil, err
	}

	return &ListResponse{
		Sessions:   sessions,
		TotalCount: totalCount,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(req.Limit))),
	}, nil
}

// fillDefaults resolves a missing post, worker, or product from the most
// recent post configuration, so a partial entry behaves like a badge scan.
func (s *service) fillDefaults(ctx context.Context, req *OpenRequest) error {
	if req.PostID == "" {
		cfg, err := s.catalog.LatestConfigForWorker(ctx, req.WorkerID)
		if err != nil {
			return err
		}
		req.PostID = cfg.PostID
		if req.ProductID == "" && cfg.ProductID != nil {
			req.ProductID = *cfg.ProductID
		}
	}

	if req.WorkerID != "" && req.ProductID != "" {
		return nil
	}

	cfg, err := s.catalog.LatestConfigForPost(ctx, req.PostID)
	if err != nil {
		return err
	}

	if req.WorkerID == "" {
		if cfg.WorkerID == nil || *cfg.WorkerID == "" {
			return models.ErrInvalidParams
		}
		req.WorkerID = *cfg.WorkerID
	}
	if req.ProductID == "" {
		if cfg.ProductID == nil || *cfg.ProductID == "" {
			return models.ErrNoProductConfigured
		}
		req.ProductID = *cfg.ProductID
	}
	return nil
}
