package rfid

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"prodtrack-svc/src/internal/catalog"
	"prodtrack-svc/src/internal/models"
	"prodtrack-svc/src/internal/session"
)

type fakeCatalog struct {
	byBadge       map[string]*catalog.Worker
	workerConfigs map[string]*catalog.PostConfig
	postConfigs   map[string]*catalog.PostConfig
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		byBadge:       make(map[string]*catalog.Worker),
		workerConfigs: make(map[string]*catalog.PostConfig),
		postConfigs:   make(map[string]*catalog.PostConfig),
	}
}

func (c *fakeCatalog) GetWorkerByBadge(ctx context.Context, badgeCode string, now time.Time) (*catalog.Worker, error) {
	w, ok := c.byBadge[badgeCode]
	if !ok {
		return nil, models.ErrBadgeNotFound
	}
	return w, nil
}

func (c *fakeCatalog) LatestConfigForWorker(ctx context.Context, workerID string) (*catalog.PostConfig, error) {
	cfg, ok := c.workerConfigs[workerID]
	if !ok {
		return nil, models.ErrNoPostResolvable
	}
	return cfg, nil
}

func (c *fakeCatalog) LatestConfigForPost(ctx context.Context, postID string) (*catalog.PostConfig, error) {
	cfg, ok := c.postConfigs[postID]
	if !ok {
		return nil, models.ErrNoProductConfigured
	}
	return cfg, nil
}

// fakeSessions is a minimal lifecycle manager tracking open sessions by
// (post, worker).
type fakeSessions struct {
	open map[string]*session.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{open: make(map[string]*session.Session)}
}

func (f *fakeSessions) key(postID, workerID string) string { return postID + "|" + workerID }

func (f *fakeSessions) Open(ctx context.Context, req *session.OpenRequest) (*session.Session, error) {
	key := f.key(req.PostID, req.WorkerID)
	if existing, ok := f.open[key]; ok {
		return nil, &models.DuplicateOpenError{ExistingID: existing.ID.Hex()}
	}
	s := &session.Session{
		ID:        primitive.NewObjectID(),
		PostID:    req.PostID,
		WorkerID:  req.WorkerID,
		ProductID: req.ProductID,
		StartTs:   time.Now(),
		Open:      true,
	}
	f.open[key] = s
	return s, nil
}

func (f *fakeSessions) Close(ctx context.Context, req *session.CloseRequest) (*session.CloseResult, error) {
	for key, s := range f.open {
		if s.ID.Hex() == req.SessionID {
			delete(f.open, key)
			end := time.Now()
			s.Open = false
			s.EndTs = &end
			return &session.CloseResult{Session: s, DurationMinutes: 30}, nil
		}
	}
	return nil, models.ErrSessionNotFound
}

func (f *fakeSessions) ResolveOpen(ctx context.Context, sessionID, postID, workerID string) (*session.Session, error) {
	if s, ok := f.open[f.key(postID, workerID)]; ok {
		return s, nil
	}
	return nil, models.ErrSessionNotFound
}

func (f *fakeSessions) ListOpen(ctx context.Context) ([]*session.Session, error) {
	return nil, nil
}

func (f *fakeSessions) List(ctx context.Context, req *session.ListRequest) (*session.ListResponse, error) {
	return &session.ListResponse{}, nil
}

func setup() (*fakeCatalog, *fakeSessions, Resolver, *catalog.Worker) {
	cat := newFakeCatalog()
	sessions := newFakeSessions()
	resolver := NewResolver(cat, sessions)

	worker := &catalog.Worker{ID: primitive.NewObjectID(), Name: "Ana", Matricula: "M-100", Active: true}
	cat.byBadge["TAG-1"] = worker

	productID := "prod-1"
	cat.workerConfigs[worker.ID.Hex()] = &catalog.PostConfig{
		PostID:    "post-1",
		ProductID: &productID,
	}
	cat.postConfigs["post-1"] = cat.workerConfigs[worker.ID.Hex()]

	return cat, sessions, resolver, worker
}

func TestToggleAlternatesEntryExit(t *testing.T) {
	_, _, resolver, worker := setup()

	first, err := resolver.Toggle(context.Background(), "TAG-1", "")
	require.NoError(t, err)
	assert.Equal(t, ToggleEntry, first.Type)
	assert.Equal(t, "post-1", first.PostID)
	assert.Equal(t, worker.ID, first.Worker.ID)
	assert.Nil(t, first.DurationMinutes)

	second, err := resolver.Toggle(context.Background(), "TAG-1", "")
	require.NoError(t, err)
	assert.Equal(t, ToggleExit, second.Type)
	assert.Equal(t, first.SessionID, second.SessionID)
	require.NotNil(t, second.DurationMinutes)
	assert.Equal(t, 30, *second.DurationMinutes)

	// A third tap starts over with a fresh session.
	third, err := resolver.Toggle(context.Background(), "TAG-1", "")
	require.NoError(t, err)
	assert.Equal(t, ToggleEntry, third.Type)
	assert.NotEqual(t, first.SessionID, third.SessionID)
}

func TestToggleUnknownBadge(t *testing.T) {
	_, _, resolver, _ := setup()

	_, err := resolver.Toggle(context.Background(), "TAG-404", "")
	assert.ErrorIs(t, err, models.ErrBadgeNotFound)
}

func TestToggleInactiveWorker(t *testing.T) {
	cat, _, resolver, _ := setup()
	cat.byBadge["TAG-2"] = &catalog.Worker{ID: primitive.NewObjectID(), Name: "Luis", Active: false}

	_, err := resolver.Toggle(context.Background(), "TAG-2", "")
	assert.ErrorIs(t, err, models.ErrWorkerInactive)
}

func TestToggleNoPostResolvable(t *testing.T) {
	cat, _, resolver, _ := setup()
	orphan := &catalog.Worker{ID: primitive.NewObjectID(), Name: "Eva", Active: true}
	cat.byBadge["TAG-3"] = orphan

	_, err := resolver.Toggle(context.Background(), "TAG-3", "")
	assert.ErrorIs(t, err, models.ErrNoPostResolvable)
}

func TestToggleExplicitPostWithoutProduct(t *testing.T) {
	cat, _, resolver, _ := setup()
	cat.postConfigs["post-9"] = &catalog.PostConfig{PostID: "post-9"}

	_, err := resolver.Toggle(context.Background(), "TAG-1", "post-9")
	assert.ErrorIs(t, err, models.ErrNoProductConfigured)
}

func TestToggleExplicitPostOverridesConfig(t *testing.T) {
	cat, sessions, resolver, worker := setup()
	productID := "prod-2"
	cat.postConfigs["post-2"] = &catalog.PostConfig{PostID: "post-2", ProductID: &productID}

	result, err := resolver.Toggle(context.Background(), "TAG-1", "post-2")
	require.NoError(t, err)
	assert.Equal(t, ToggleEntry, result.Type)
	assert.Equal(t, "post-2", result.PostID)

	open, err := sessions.ResolveOpen(context.Background(), "", "post-2", worker.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "prod-2", open.ProductID)
}
