package events

import "prodtrack-svc/src/internal/models"

// Publisher receives domain events after a lifecycle operation commits.
// Implementations must never block the caller for long and must never
// return delivery failures to it.
type Publisher interface {
	Publish(event models.SessionEvent)
}

// Fanout forwards one event to several publishers in order.
type Fanout []Publisher

func (f Fanout) Publish(event models.SessionEvent) {
	for _, p := range f {
		p.Publish(event)
	}
}

// Discard drops every event. Used where no notification path is wired,
// such as tests.
type Discard struct{}

func (Discard) Publish(models.SessionEvent) {}
