package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event types, also used as routing keys.
const (
	UserCreated       = "user.created"
	UserUpdated       = "user.updated"
	UserDeleted       = "user.deleted"
	DepartmentCreated = "department.created"
	DepartmentUpdated = "department.updated"
	DepartmentDeleted = "department.deleted"
)

type Event struct {
	Type       string    `json:"type"`
	EntityID   uint      `json:"entityId"`
	Attributes any       `json:"attributes,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(eventType string, entityID uint, attributes any) Event {
	return Event{
		Type:       eventType,
		EntityID:   entityID,
		Attributes: attributes,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers change events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPPublisher struct {
	mu       sync.Mutex
	ch       channel
	exchange string
}

func NewAMQPPublisher(ch *amqp.Channel, exchange string) *AMQPPublisher {
	return &AMQPPublisher{ch: ch, exchange: exchange}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    event.OccurredAt,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	var types []string
	for _, e := range r.Events() {
		types = append(types, e.Type)
	}
	return types
}

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = NopPublisher{}
	_ Publisher = (*Recorder)(nil)
)
