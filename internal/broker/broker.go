// Package broker publishes ticketing notifications to RabbitMQ. Publishing
// is best effort: callers log failures and carry on.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	QueueTicketsGenerated = "tickets.generated"
	QueueTicketsConfirmed = "tickets.confirmed"
)

type TicketsGenerated struct {
	EventID        int64     `json:"event_id"`
	Tickets        int       `json:"tickets"`
	BillingEventID string    `json:"billing_event_id"`
	BillingPriceID string    `json:"billing_price_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type TicketsConfirmed struct {
	UserID     int64     `json:"user_id"`
	References []string  `json:"references"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishTicketsGenerated(ctx context.Context, msg TicketsGenerated) error
	PublishTicketsConfirmed(ctx context.Context, msg TicketsConfirmed) error
	Close() error
}

// Nop discards every message. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishTicketsGenerated(context.Context, TicketsGenerated) error { return nil }
func (Nop) PublishTicketsConfirmed(context.Context, TicketsConfirmed) error { return nil }
func (Nop) Close() error                                                    { return nil }

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes JSON messages to durable queues on the default exchange.
type AMQP struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       channel
	declared map[string]bool
	now      func() time.Time
}

func Dial(url string) (*AMQP, error) {
	const op = "broker.Dial"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: channel: %w", op, err)
	}

	return newAMQP(conn, ch), nil
}

func newAMQP(conn *amqp.Connection, ch channel) *AMQP {
	return &AMQP{
		conn:     conn,
		ch:       ch,
		declared: map[string]bool{},
		now:      time.Now,
	}
}

func (a *AMQP) PublishTicketsGenerated(ctx context.Context, msg TicketsGenerated) error {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = a.now().UTC()
	}
	return a.publish(ctx, QueueTicketsGenerated, msg)
}

func (a *AMQP) PublishTicketsConfirmed(ctx context.Context, msg TicketsConfirmed) error {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = a.now().UTC()
	}
	return a.publish(ctx, QueueTicketsConfirmed, msg)
}

func (a *AMQP) publish(ctx context.Context, queue string, v any) error {
	const op = "broker.AMQP.publish"

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.declared[queue] {
		if _, err := a.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("%s: declare %s: %w", op, queue, err)
		}
		a.declared[queue] = true
	}

	if err := a.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.now().UTC(),
		Body:         body,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.ch.Close()
	if a.conn != nil {
		if cerr := a.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
