package dashboard

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/catalog"
	"prodtrack-svc/src/internal/session"
)

// Sessions is the slice of the session ledger the aggregator reads.
type Sessions interface {
	ListOpen(ctx context.Context) ([]*session.Session, error)
	QuantityClosedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// Topology is the static sub-line/post layout.
type Topology interface {
	ListSubLines(ctx context.Context) ([]*catalog.SubLine, error)
	ListPosts(ctx context.Context) ([]*catalog.Post, error)
}

// Labels resolves display names for occupied slots.
type Labels interface {
	GetWorker(ctx context.Context, id string) (*catalog.Worker, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	GetOperation(ctx context.Context, id string) (*catalog.Operation, error)
}

// Aggregator computes the occupancy snapshot. Pure read: safe to call
// repeatedly and concurrently.
type Aggregator interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

type aggregator struct {
	sessions Sessions
	topology Topology
	labels   Labels
	capacity int
	location *time.Location
	now      func() time.Time
}

func NewAggregator(sessions Sessions, topology Topology, labels Labels, capacity int, location *time.Location) Aggregator {
	if capacity <= 0 {
		capacity = 4
	}
	return &aggregator{
		sessions: sessions,
		topology: topology,
		labels:   labels,
		capacity: capacity,
		location: location,
		now:      time.Now,
	}
}

func (a *aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	open, err := a.sessions.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	subLines, err := a.topology.ListSubLines(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := a.topology.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	openByPost := make(map[string]*session.Session, len(open))
	workers := make(map[string]struct{}, len(open))
	for _, s := range open {
		openByPost[s.PostID] = s
		workers[s.WorkerID] = struct{}{}
	}

	postsBySubLine := make(map[string][]*catalog.Post, len(subLines))
	for _, p := range posts {
		postsBySubLine[p.SubLineID] = append(postsBySubLine[p.SubLineID], p)
	}

	resolver := newLabelResolver(a.labels)

	grid := make([]SubLineGrid, 0, len(subLines))
	number := 0
	for _, sl := range subLines {
		subLinePosts := postsBySubLine[sl.ID.Hex()]
		if len(subLinePosts) > a.capacity {
			subLinePosts = subLinePosts[:a.capacity]
		}

		slots := make([]Slot, 0, a.capacity)
		for _, post := range subLinePosts {
			number++
			slot := Slot{
				Number:   number,
				PostID:   post.ID.Hex(),
				PostName: post.Name,
			}
			if s, ok := openByPost[post.ID.Hex()]; ok {
				slot.Occupied = true
				slot.SessionID = s.ID.Hex()
				start := s.StartTs
				slot.StartTs = &start
				resolver.fill(ctx, &slot, s)
			}
			slots = append(slots, slot)
		}

		// Pad with idle placeholders up to fixed capacity.
		for len(slots) < a.capacity {
			number++
			slots = append(slots, Slot{Number: number})
		}

		grid = append(grid, SubLineGrid{
			SubLineID: sl.ID.Hex(),
			Name:      sl.Name,
			Slots:     slots,
		})
	}

	now := a.now().In(a.location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.location)
	quantity, err := a.sessions.QuantityClosedBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	// Occupancy counts every post holding an open session, including posts
	// the grid truncates away.
	return &Snapshot{
		Metrics: Metrics{
			OccupiedPosts: len(openByPost),
			TotalPosts:    len(posts),
			QuantityToday: quantity,
			ActiveWorkers: len(workers),
		},
		Grid:        grid,
		GeneratedAt: now,
	}, nil
}

// labelResolver memoizes catalog lookups within one snapshot pass.
type labelResolver struct {
	labels     Labels
	workers    map[string]*catalog.Worker
	products   map[string]*catalog.Product
	operations map[string]*catalog.Operation
}

func newLabelResolver(labels Labels) *labelResolver {
	return &labelResolver{
		labels:     labels,
		workers:    make(map[string]*catalog.Worker),
		products:   make(map[string]*catalog.Product),
		operations: make(map[string]*catalog.Operation),
	}
}

func (r *labelResolver) fill(ctx context.Context, slot *Slot, s *session.Session) {
	if worker := r.worker(ctx, s.WorkerID); worker != nil {
		slot.Worker = worker.Name
		slot.Matricula = worker.Matricula
	}
	if product := r.product(ctx, s.ProductID); product != nil {
		slot.Product = product.Name
	}
	if s.OperationID != nil {
		if operation := r.operation(ctx, *s.OperationID); operation != nil {
			slot.Operation = operation.Name
		}
	}
}

func (r *labelResolver) worker(ctx context.Context, id string) *catalog.Worker {
	if cached, ok := r.workers[id]; ok {
		return cached
	}
	worker, err := r.labels.GetWorker(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("worker_id", id).Warn("Worker label unresolved for snapshot")
		worker = nil
	}
	r.workers[id] = worker
	return worker
}

func (r *labelResolver) product(ctx context.Context, id string) *catalog.Product {
	if cached, ok := r.products[id]; ok {
		return cached
	}
	product, err := r.labels.GetProduct(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("product_id", id).Warn("Product label unresolved for snapshot")
		product = nil
	}
	r.products[id] = product
	return product
}

func (r *labelResolver) operation(ctx context.Context, id string) *catalog.Operation {
	if cached, ok := r.operations[id]; ok {
		return cached
	}
	operation, err := r.labels.GetOperation(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("operation_id", id).Warn("Operation label unresolved for snapshot")
		operation = nil
	}
	r.operations[id] = operation
	return operation
}
