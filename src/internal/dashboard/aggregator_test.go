package dashboard

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

type fakeSessions struct {
	open     []*session.Session
	quantity int64
}

func (f *fakeSessions) ListOpen(ctx context.Context) ([]*session.Session, error) {
	return f.open, nil
}

func (f *fakeSessions) QuantityClosedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return f.quantity, nil
}

type fakeTopology struct {
	subLines []*catalog.SubLine
	posts    []*catalog.Post
}

func (f *fakeTopology) ListSubLines(ctx context.Context) ([]*catalog.SubLine, error) {
	return f.subLines, nil
}

func (f *fakeTopology) ListPosts(ctx context.Context) ([]*catalog.Post, error) {
	return f.posts, nil
}

type fakeLabels struct {
	workers map[string]*catalog.Worker
	lookups int
}

func (f *fakeLabels) GetWorker(ctx context.Context, id string) (*catalog.Worker, error) {
	f.lookups++
	if worker, ok := f.workers[id]; ok {
		return worker, nil
	}
	return nil, models.ErrWorkerNotFound
}

func (f *fakeLabels) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	return &catalog.Product{Name: "Harness 12V"}, nil
}

func (f *fakeLabels) GetOperation(ctx context.Context, id string) (*catalog.Operation, error) {
	return &catalog.Operation{Code: "OP-1", Name: "Crimping"}, nil
}

type fixture struct {
	sessions *fakeSessions
	topology *fakeTopology
	labels   *fakeLabels
	subLines []*catalog.SubLine
	posts    []*catalog.Post
}

// setup builds two sub-lines with three and two physical posts.
func setup() *fixture {
	f := &fixture{
		sessions: &fakeSessions{},
		labels:   &fakeLabels{workers: make(map[string]*catalog.Worker)},
	}

	for _, name := range []string{"Linea A", "Linea B"} {
		f.subLines = append(f.subLines, &catalog.SubLine{ID: primitive.NewObjectID(), Name: name})
	}
	postCounts := []int{3, 2}
	for i, sl := range f.subLines {
		for j := 0; j < postCounts[i]; j++ {
			f.posts = append(f.posts, &catalog.Post{
				ID:        primitive.NewObjectID(),
				Name:      sl.Name + " P" + string(rune('1'+j)),
				SubLineID: sl.ID.Hex(),
				Order:     j + 1,
			})
		}
	}
	f.topology = &fakeTopology{subLines: f.subLines, posts: f.posts}
	return f
}

func (f *fixture) addWorker(id, name string) {
	f.labels.workers[id] = &catalog.Worker{Name: name, Matricula: "M-" + id, Active: true}
}

func (f *fixture) openSession(post *catalog.Post, workerID string) *session.Session {
	s := &session.Session{
		ID:        primitive.NewObjectID(),
		PostID:    post.ID.Hex(),
		WorkerID:  workerID,
		ProductID: "product-1",
		StartTs:   time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC),
		Open:      true,
	}
	f.sessions.open = append(f.sessions.open, s)
	return s
}

func (f *fixture) aggregator(capacity int) Aggregator {
	return NewAggregator(f.sessions, f.topology, f.labels, capacity, time.UTC)
}

func TestSnapshotGrid(t *testing.T) {
	f := setup()
	f.addWorker("w1", "Ana Ruiz")
	f.addWorker("w2", "Luis Parra")
	f.openSession(f.posts[0], "w1")
	f.openSession(f.posts[2], "w2")
	f.openSession(f.posts[3], "w1")
	f.sessions.quantity = 42

	snapshot, err := f.aggregator(4).Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Grid, 2)
	for _, grid := range snapshot.Grid {
		assert.Len(t, grid.Slots, 4)
	}

	// Slot numbering runs sequentially across the whole grid.
	number := 0
	for _, grid := range snapshot.Grid {
		for _, slot := range grid.Slots {
			number++
			assert.Equal(t, number, slot.Number)
		}
	}
	assert.Equal(t, 8, number)

	lineA := snapshot.Grid[0]
	assert.True(t, lineA.Slots[0].Occupied)
	assert.Equal(t, "Ana Ruiz", lineA.Slots[0].Worker)
	assert.Equal(t, "Harness 12V", lineA.Slots[0].Product)
	require.NotNil(t, lineA.Slots[0].StartTs)
	assert.False(t, lineA.Slots[1].Occupied)
	assert.True(t, lineA.Slots[2].Occupied)
	assert.Equal(t, "Luis Parra", lineA.Slots[2].Worker)

	// The fourth slot is padding beyond the physical posts.
	padding := lineA.Slots[3]
	assert.False(t, padding.Occupied)
	assert.Empty(t, padding.PostID)

	lineB := snapshot.Grid[1]
	assert.True(t, lineB.Slots[0].Occupied)
	assert.Equal(t, "Ana Ruiz", lineB.Slots[0].Worker)
}

func TestSnapshotMetrics(t *testing.T) {
	f := setup()
	f.addWorker("w1", "Ana Ruiz")
	f.addWorker("w2", "Luis Parra")
	f.openSession(f.posts[0], "w1")
	f.openSession(f.posts[2], "w2")
	f.openSession(f.posts[3], "w1")
	f.sessions.quantity = 42

	snapshot, err := f.aggregator(4).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, snapshot.Metrics.OccupiedPosts)
	assert.Equal(t, 5, snapshot.Metrics.TotalPosts)
	assert.Equal(t, int64(42), snapshot.Metrics.QuantityToday)
	// w1 holds two sessions but counts once.
	assert.Equal(t, 2, snapshot.Metrics.ActiveWorkers)
}

func TestSnapshotEmptyFloor(t *testing.T) {
	f := setup()

	snapshot, err := f.aggregator(4).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, snapshot.Metrics.OccupiedPosts)
	assert.Equal(t, 0, snapshot.Metrics.ActiveWorkers)
	for _, grid := range snapshot.Grid {
		for _, slot := range grid.Slots {
			assert.False(t, slot.Occupied)
			assert.Empty(t, slot.Worker)
		}
	}
}

func TestSnapshotCapacityTruncates(t *testing.T) {
	f := setup()

	snapshot, err := f.aggregator(2).Snapshot(context.Background())
	require.NoError(t, err)

	// Line A has three posts but only two fit the fixed grid.
	require.Len(t, snapshot.Grid[0].Slots, 2)
	assert.Equal(t, f.posts[1].ID.Hex(), snapshot.Grid[0].Slots[1].PostID)
}

func TestSnapshotCountsOccupancyBeyondGridCapacity(t *testing.T) {
	f := setup()
	f.addWorker("w1", "Ana Ruiz")
	// Line A's third post falls outside a two-slot grid.
	f.openSession(f.posts[2], "w1")

	snapshot, err := f.aggregator(2).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.Metrics.OccupiedPosts)
	assert.Equal(t, 1, snapshot.Metrics.ActiveWorkers)
	for _, slot := range snapshot.Grid[0].Slots {
		assert.False(t, slot.Occupied)
	}
}

func TestSnapshotMemoizesLabelLookups(t *testing.T) {
	f := setup()
	f.addWorker("w1", "Ana Ruiz")
	f.openSession(f.posts[0], "w1")
	f.openSession(f.posts[3], "w1")

	_, err := f.aggregator(4).Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.labels.lookups)
}

func TestSnapshotUnknownWorkerLeavesSlotBlank(t *testing.T) {
	f := setup()
	f.openSession(f.posts[0], "ghost")

	snapshot, err := f.aggregator(4).Snapshot(context.Background())
	require.NoError(t, err)

	slot := snapshot.Grid[0].Slots[0]
	assert.True(t, slot.Occupied)
	assert.Empty(t, slot.Worker)
}
