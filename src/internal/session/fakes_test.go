package session

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"prodtrack-svc/src/internal/catalog"
	"prodtrack-svc/src/internal/models"
)

// fakeRepository is an in-memory session ledger enforcing the same
// one-open-session-per-key rule the mongo partial index does.
type fakeRepository struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{sessions: make(map[string]*Session)}
}

func (r *fakeRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (r *fakeRepository) Insert(ctx context.Context, s *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sessions {
		if existing.Open && existing.PostID == s.PostID && existing.WorkerID == s.WorkerID {
			return nil, &models.DuplicateOpenError{ExistingID: existing.ID.Hex()}
		}
	}

	copied := *s
	copied.ID = primitive.NewObjectID()
	copied.Open = true
	copied.EndTs = nil
	r.sessions[copied.ID.Hex()] = &copied
	return &copied, nil
}

func (r *fakeRepository) FindByID(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeRepository) FindOpen(ctx context.Context, postID, workerID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Open && s.PostID == postID && s.WorkerID == workerID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, models.ErrSessionNotFound
}

func (r *fakeRepository) Close(ctx context.Context, id string, end time.Time, quantity *int) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	if !s.Open {
		return nil, models.ErrSessionAlreadyClosed
	}

	s.Open = false
	endCopy := end
	s.EndTs = &endCopy
	if quantity != nil {
		s.Quantity = quantity
	}
	copied := *s
	return &copied, nil
}

func (r *fakeRepository) ListOpen(ctx context.Context) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var open []*Session
	for _, s := range r.sessions {
		if s.Open {
			copied := *s
			open = append(open, &copied)
		}
	}
	return open, nil
}

func (r *fakeRepository) ListByDate(ctx context.Context, from, to time.Time, page, limit int) ([]*Session, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*Session
	for _, s := range r.sessions {
		if !s.StartTs.Before(from) && s.StartTs.Before(to) {
			copied := *s
			matched = append(matched, &copied)
		}
	}
	return matched, int64(len(matched)), nil
}

func (r *fakeRepository) QuantityClosedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	for _, s := range r.sessions {
		if s.Open || s.Quantity == nil {
			continue
		}
		if !s.StartTs.Before(from) && s.StartTs.Before(to) {
			total += int64(*s.Quantity)
		}
	}
	return total, nil
}

// delete mimics the cancellation archiver removing a live row.
func (r *fakeRepository) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// fakeCatalog serves a fixed set of reference data.
type fakeCatalog struct {
	workers  map[string]*catalog.Worker
	posts    map[string]*catalog.Post
	products map[string]*catalog.Product
	configs  map[string]*catalog.PostConfig // keyed by post id
	devices  map[string]string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		workers:  make(map[string]*catalog.Worker),
		posts:    make(map[string]*catalog.Post),
		products: make(map[string]*catalog.Product),
		configs:  make(map[string]*catalog.PostConfig),
		devices:  make(map[string]string),
	}
}

func (c *fakeCatalog) addWorker(name string, active bool) string {
	w := &catalog.Worker{ID: primitive.NewObjectID(), Name: name, Matricula: "M-" + name, Active: active}
	c.workers[w.ID.Hex()] = w
	return w.ID.Hex()
}

func (c *fakeCatalog) addPost(name string) string {
	p := &catalog.Post{ID: primitive.NewObjectID(), Name: name}
	c.posts[p.ID.Hex()] = p
	return p.ID.Hex()
}

func (c *fakeCatalog) addProduct(name string) string {
	p := &catalog.Product{ID: primitive.NewObjectID(), Code: name, Name: name}
	c.products[p.ID.Hex()] = p
	return p.ID.Hex()
}

func (c *fakeCatalog) GetWorker(ctx context.Context, id string) (*catalog.Worker, error) {
	w, ok := c.workers[id]
	if !ok {
		return nil, models.ErrWorkerNotFound
	}
	return w, nil
}

func (c *fakeCatalog) GetPost(ctx context.Context, id string) (*catalog.Post, error) {
	p, ok := c.posts[id]
	if !ok {
		return nil, models.ErrPostNotFound
	}
	return p, nil
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, models.ErrProductNotFound
	}
	return p, nil
}

func (c *fakeCatalog) LatestConfigForPost(ctx context.Context, postID string) (*catalog.PostConfig, error) {
	cfg, ok := c.configs[postID]
	if !ok {
		return nil, models.ErrNoProductConfigured
	}
	return cfg, nil
}

func (c *fakeCatalog) LatestConfigForWorker(ctx context.Context, workerID string) (*catalog.PostConfig, error) {
	for _, cfg := range c.configs {
		if cfg.WorkerID != nil && *cfg.WorkerID == workerID && cfg.ProductID != nil {
			return cfg, nil
		}
	}
	return nil, models.ErrNoPostResolvable
}

func (c *fakeCatalog) DeviceNameForPost(ctx context.Context, postID string) (string, error) {
	return c.devices[postID], nil
}

func configFor(postID, workerID, productID string) *catalog.PostConfig {
	return &catalog.PostConfig{
		ID:        primitive.NewObjectID(),
		PostID:    postID,
		WorkerID:  &workerID,
		ProductID: &productID,
		UpdatedAt: time.Now(),
	}
}

// capturePublisher records emitted events.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.SessionEvent
}

func (p *capturePublisher) Publish(event models.SessionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}
