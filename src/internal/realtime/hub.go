package realtime

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Frame is the wire format pushed to dashboard subscribers.
type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

const (
	FrameSnapshot      = "snapshot"
	FrameRequestUpdate = "request_update"
)

// Peer is one connected subscriber. Writes are serialized per connection;
// the transport guarantees per-connection ordering, nothing more.
type Peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func NewPeer(w io.Writer) *Peer {
	return &Peer{encoder: json.NewEncoder(w)}
}

func (p *Peer) Send(frame Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// Hub tracks the connected subscriber set and fans frames out to all of
// them. Delivery is fire and forget: a failing subscriber is logged and
// skipped, never retried.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Peer]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Peer]struct{})}
}

func (h *Hub) Join(p *Peer) {
	h.mu.Lock()
	h.subscribers[p] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	logrus.WithField("subscribers", count).Debug("Dashboard subscriber connected")
}

func (h *Hub) Leave(p *Peer) {
	h.mu.Lock()
	delete(h.subscribers, p)
	count := len(h.subscribers)
	h.mu.Unlock()

	logrus.WithField("subscribers", count).Debug("Dashboard subscriber disconnected")
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) Broadcast(frame Frame) {
	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.subscribers))
	for p := range h.subscribers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		if err := p.Send(frame); err != nil {
			logrus.WithError(err).Warn("Failed to deliver frame to subscriber")
		}
	}
}
