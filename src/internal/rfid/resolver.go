package rfid

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/catalog"
	"prodtrack-svc/src/internal/models"
	"prodtrack-svc/src/internal/session"
)

type ToggleType string

const (
	ToggleEntry ToggleType = "entry"
	ToggleExit  ToggleType = "exit"
)

// ToggleResult is the tagged outcome of a badge scan: an Entry carries the
// freshly opened session, an Exit the closed one plus its duration.
type ToggleResult struct {
	Type            ToggleType       `json:"type"`
	Worker          *catalog.Worker  `json:"worker"`
	PostID          string           `json:"postId"`
	SessionID       string           `json:"sessionId"`
	Session         *session.Session `json:"session"`
	DurationMinutes *int             `json:"durationMinutes,omitempty"`
}

// Catalog is the reference-data slice the resolver needs.
type Catalog interface {
	GetWorkerByBadge(ctx context.Context, badgeCode string, now time.Time) (*catalog.Worker, error)
	LatestConfigForWorker(ctx context.Context, workerID string) (*catalog.PostConfig, error)
	LatestConfigForPost(ctx context.Context, postID string) (*catalog.PostConfig, error)
}

// Resolver turns a badge scan into an entry or an exit. The same physical
// tap flips the worker's state; the caller supplies no mode.
type Resolver interface {
	Toggle(ctx context.Context, tagCode, postID string) (*ToggleResult, error)
}

type resolver struct {
	catalog  Catalog
	sessions session.Service
	now      func() time.Time
}

func NewResolver(cat Catalog, sessions session.Service) Resolver {
	return &resolver{
		catalog:  cat,
		sessions: sessions,
		now:      time.Now,
	}
}

func (r *resolver) Toggle(ctx context.Context, tagCode, postID string) (*ToggleResult, error) {
	worker, err := r.catalog.GetWorkerByBadge(ctx, tagCode, r.now())
	if err != nil {
		return nil, err
	}
	if !worker.Active {
		return nil, models.ErrWorkerInactive
	}
	workerID := worker.ID.Hex()

	productID := ""
	if postID == "" {
		cfg, err := r.catalog.LatestConfigForWorker(ctx, workerID)
		if err != nil {
			return nil, err
		}
		postID = cfg.PostID
		if cfg.ProductID != nil {
			productID = *cfg.ProductID
		}
	} else {
		cfg, err := r.catalog.LatestConfigForPost(ctx, postID)
		if err != nil {
			return nil, err
		}
		if cfg.ProductID != nil {
			productID = *cfg.ProductID
		}
	}
	if productID == "" {
		return nil, models.ErrNoProductConfigured
	}

	open, err := r.sessions.ResolveOpen(ctx, "", postID, workerID)
	switch {
	case err == nil:
		return r.exit(ctx, worker, postID, open)
	case errors.Is(err, models.ErrSessionNotFound):
		return r.entry(ctx, worker, postID, productID)
	default:
		return nil, err
	}
}

func (r *resolver) entry(ctx context.Context, worker *catalog.Worker, postID, productID string) (*ToggleResult, error) {
	opened, err := r.sessions.Open(ctx, &session.OpenRequest{
		PostID:    postID,
		WorkerID:  worker.ID.Hex(),
		ProductID: productID,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"worker_id":  worker.ID.Hex(),
		"post_id":    postID,
		"session_id": opened.ID.Hex(),
	}).Info("Badge toggle resolved to entry")

	return &ToggleResult{
		Type:      ToggleEntry,
		Worker:    worker,
		PostID:    postID,
		SessionID: opened.ID.Hex(),
		Session:   opened,
	}, nil
}

func (r *resolver) exit(ctx context.Context, worker *catalog.Worker, postID string, open *session.Session) (*ToggleResult, error) {
	result, err := r.sessions.Close(ctx, &session.CloseRequest{
		SessionID: open.ID.Hex(),
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"worker_id":        worker.ID.Hex(),
		"post_id":          postID,
		"session_id":       result.Session.ID.Hex(),
		"duration_minutes": result.DurationMinutes,
	}).Info("Badge toggle resolved to exit")

	duration := result.DurationMinutes
	return &ToggleResult{
		Type:            ToggleExit,
		Worker:          worker,
		PostID:          postID,
		SessionID:       result.Session.ID.Hex(),
		Session:         result.Session,
		DurationMinutes: &duration,
	}, nil
}
