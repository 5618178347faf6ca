// Package events publishes order lifecycle events for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types.
const (
	TypeOrderRefunded      = "order.refunded"
	TypeOrderPaymentSynced = "order.payment_synced"
)

// Event is the published envelope.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OrderID    int       `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// New builds an event with a fresh id.
func New(typ string, orderID int, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher publishes events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Kafka publishes events as JSON keyed by order id.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic string) *Kafka {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Kafka{writer: writer}
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(e.OrderID)),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Recorder keeps published events in memory, for tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// PublishLogged publishes e and logs a failure instead of returning it.
// Event delivery never fails the request that produced it.
func PublishLogged(ctx context.Context, p Publisher, logger *slog.Logger, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			slog.String("type", e.Type),
			slog.Int("order_id", e.OrderID),
			slog.String("error", err.Error()),
		)
	}
}
