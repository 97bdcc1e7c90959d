package realtime

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"prodtrack-svc/src/internal/dashboard"
	"prodtrack-svc/src/internal/models"
)

// Dispatcher owns the throttled broadcast path. It subscribes to lifecycle
// events and pushes full snapshots to the hub; a failure anywhere in here
// never reaches the business operation that raised the event.
type Dispatcher struct {
	hub        *Hub
	throttler  *Throttler
	aggregator dashboard.Aggregator
	cache      dashboard.SnapshotCache
	timeout    time.Duration
}

func NewDispatcher(hub *Hub, throttler *Throttler, aggregator dashboard.Aggregator, cache dashboard.SnapshotCache, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		hub:        hub,
		throttler:  throttler,
		aggregator: aggregator,
		cache:      cache,
		timeout:    timeout,
	}
}

// Publish implements events.Publisher.
func (d *Dispatcher) Publish(event models.SessionEvent) {
	if !d.throttler.Allow(false) {
		logrus.WithField("type", event.Type).Debug("Broadcast throttled")
		return
	}
	go d.broadcast()
}

func (d *Dispatcher) broadcast() {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	snapshot, err := d.aggregator.Snapshot(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to build snapshot for broadcast")
		return
	}

	if d.cache != nil {
		if err := d.cache.SaveSnapshot(ctx, snapshot); err != nil {
			logrus.WithError(err).Warn("Failed to cache broadcast snapshot")
		}
	}

	d.hub.Broadcast(Frame{Type: FrameSnapshot, Payload: snapshot})
}

// SendSnapshot delivers a fresh snapshot to a single peer, bypassing the
// throttle. Used on connect and on an explicit update request.
func (d *Dispatcher) SendSnapshot(ctx context.Context, peer *Peer) {
	snapshot, err := d.aggregator.Snapshot(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to build snapshot for peer")
		return
	}

	if err := peer.Send(Frame{Type: FrameSnapshot, Payload: snapshot}); err != nil {
		logrus.WithError(err).Warn("Failed to send snapshot to peer")
	}
}
