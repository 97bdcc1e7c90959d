package clients

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"prodtrack-svc/src/internal/config"
	"prodtrack-svc/src/internal/models"
)

// EventPublisher pushes lifecycle events onto the RabbitMQ exchange for
// downstream consumers (reporting, andon displays). Best effort: a publish
// failure is logged and swallowed.
type EventPublisher struct {
	channel *amqp.Channel
	cfg     *config.RabbitMQConfig
}

func NewEventPublisher(rabbit *RabbitMQ, cfg *config.Configuration) *EventPublisher {
	return &EventPublisher{
		channel: rabbit.Channel,
		cfg:     &cfg.Queue.RabbitMQ,
	}
}

func (p *EventPublisher) Publish(event models.SessionEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal session event")
		return
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		p.cfg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"type":       event.Type,
			"session_id": event.SessionID,
		}).Error("Failed to publish session event")
		return
	}

	logrus.WithFields(logrus.Fields{
		"type":        event.Type,
		"session_id":  event.SessionID,
		"post_id":     event.PostID,
		"worker_id":   event.WorkerID,
		"exchange":    p.cfg.Exchange,
		"routing_key": p.cfg.RoutingKey,
	}).Debug("Session event published")
}
