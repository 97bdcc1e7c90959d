package realtime

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prodtrack-svc/src/internal/dashboard"
	"prodtrack-svc/src/internal/models"
)

type stubAggregator struct {
	builds int64
	built  chan struct{}
}

func newStubAggregator() *stubAggregator {
	return &stubAggregator{built: make(chan struct{}, 16)}
}

func (a *stubAggregator) Snapshot(ctx context.Context) (*dashboard.Snapshot, error) {
	atomic.AddInt64(&a.builds, 1)
	a.built <- struct{}{}
	return &dashboard.Snapshot{
		Metrics:     dashboard.Metrics{OccupiedPosts: 1, TotalPosts: 4},
		GeneratedAt: time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
	}, nil
}

type stubCache struct {
	saves int64
}

func (c *stubCache) GetSnapshot(ctx context.Context) (*dashboard.Snapshot, error) {
	return nil, nil
}

func (c *stubCache) SaveSnapshot(ctx context.Context, snapshot *dashboard.Snapshot) error {
	atomic.AddInt64(&c.saves, 1)
	return nil
}

func waitBuilt(t *testing.T, a *stubAggregator) {
	t.Helper()
	select {
	case <-a.built:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot build")
	}
}

func event() models.SessionEvent {
	return models.SessionEvent{Type: models.EventSessionOpened, SessionID: "s1"}
}

func TestPublishBroadcastsSnapshot(t *testing.T) {
	hub := NewHub()
	buf := &safeBuffer{}
	hub.Join(NewPeer(buf))

	aggregator := newStubAggregator()
	cache := &stubCache{}
	dispatcher := NewDispatcher(hub, NewThrottler(time.Minute), aggregator, cache, time.Second)

	dispatcher.Publish(event())
	waitBuilt(t, aggregator)

	require.Eventually(t, func() bool { return buf.String() != "" }, 2*time.Second, 10*time.Millisecond)

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &frame))
	assert.Equal(t, FrameSnapshot, frame.Type)
	assert.NotNil(t, frame.Payload)
	assert.Equal(t, int64(1), atomic.LoadInt64(&cache.saves))
}

func TestPublishBurstBuildsOneSnapshot(t *testing.T) {
	hub := NewHub()
	aggregator := newStubAggregator()
	dispatcher := NewDispatcher(hub, NewThrottler(time.Minute), aggregator, nil, time.Second)

	for i := 0; i < 10; i++ {
		dispatcher.Publish(event())
	}
	waitBuilt(t, aggregator)

	assert.Equal(t, int64(1), atomic.LoadInt64(&aggregator.builds))
}

func TestSendSnapshotBypassesThrottle(t *testing.T) {
	hub := NewHub()
	aggregator := newStubAggregator()
	dispatcher := NewDispatcher(hub, NewThrottler(time.Minute), aggregator, nil, time.Second)

	// Exhaust the shared throttle first.
	dispatcher.Publish(event())
	waitBuilt(t, aggregator)

	buf := &safeBuffer{}
	dispatcher.SendSnapshot(context.Background(), NewPeer(buf))
	waitBuilt(t, aggregator)

	var frame Frame
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &frame))
	assert.Equal(t, FrameSnapshot, frame.Type)
}
