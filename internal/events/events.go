// Package events publishes tracking lifecycle events for the external
// price-monitoring backend over AMQP.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Event type keys published on the topic exchange.
const (
	KeyTrackingCreated      = "tracking.created"
	KeyTrackingPaused       = "tracking.paused"
	KeyTrackingRestored     = "tracking.restored"
	KeyTrackingTargetEdited = "tracking.target_edited"
	KeyTrackingExpired      = "tracking.expired"
	KeyTrackingRemoved      = "tracking.removed"
)

// Meta describes one published event.
type Meta struct {
	// Unique event ID
	ID string `json:"id"`
	// Event name, e.g. tracking.created
	Type string `json:"type"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
}

// Envelope wraps an event payload with its metadata.
type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// NewEnvelope builds an envelope with a fresh event ID and timestamp.
func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		Meta: Meta{ID: uuid.NewString(), Type: eventType, Time: time.Now()},
		Data: data,
	}
}

// Publisher emits lifecycle events. Both the AMQP client and the fallback
// implement it.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

type rmqClient struct {
	conn     *amqp091.Connection
	exchange string
}

// New connects to the broker and declares the topic exchange.
func New(url, exchange string) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}
	slog.Debug("events.New: publisher connected", "exchange", exchange)
	return &rmqClient{conn: conn, exchange: exchange}, nil
}

func (r *rmqClient) Publish(ctx context.Context, key string, msg Envelope) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msg.Meta.ID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err == nil {
		slog.Info("events.Publish: published", "key", key, "exchange", r.exchange, "id", msg.Meta.ID)
	}
	return err
}

func (r *rmqClient) Close() error {
	return r.conn.Close()
}

// FallbackPublisher is used when no broker is configured; publishes are
// logged and dropped.
type FallbackPublisher struct{}

// NewFallback returns the no-broker publisher.
func NewFallback() Publisher {
	return &FallbackPublisher{}
}

// Publish logs and drops the event.
func (p *FallbackPublisher) Publish(ctx context.Context, key string, msg Envelope) error {
	slog.Debug("events.FallbackPublisher: skipped publish", "key", key, "type", msg.Meta.Type)
	return nil
}

// Close is a no-op.
func (p *FallbackPublisher) Close() error {
	return nil
}
