package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

// Handler exposes the dashboard websocket endpoint. Connection lifecycle:
// join the hub, receive one immediate snapshot, then hold until disconnect.
// The only inbound frame honored is request_update.
type Handler struct {
	hub        *Hub
	dispatcher *Dispatcher
	timeout    time.Duration
}

func NewHandler(hub *Hub, dispatcher *Dispatcher, timeout time.Duration) *Handler {
	return &Handler{
		hub:        hub,
		dispatcher: dispatcher,
		timeout:    timeout,
	}
}

func (h *Handler) HTTPHandler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Handler) serve(conn *websocket.Conn) {
	peer := NewPeer(conn)
	h.hub.Join(peer)
	defer h.hub.Leave(peer)

	// New subscribers always get one unthrottled snapshot.
	h.sendSnapshot(peer)

	decoder := json.NewDecoder(conn)
	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) {
				logrus.WithError(err).Debug("Subscriber read ended")
			}
			return
		}

		switch frame.Type {
		case FrameRequestUpdate:
			h.sendSnapshot(peer)
		default:
			logrus.WithField("type", frame.Type).Debug("Ignoring unknown frame from subscriber")
		}
	}
}

func (h *Handler) sendSnapshot(peer *Peer) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	h.dispatcher.SendSnapshot(ctx, peer)
}
