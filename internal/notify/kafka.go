package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/holycat-orders/internal/kafka"
	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const EventVersion = 1

type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

// Kafka publishes every committed transition as an Envelope keyed by order id.
type Kafka struct {
	pub      Publisher
	producer string
	now      func() time.Time
}

func NewKafka(pub Publisher, producer string) *Kafka {
	return &Kafka{pub: pub, producer: producer, now: func() time.Time { return time.Now().UTC() }}
}

func (k *Kafka) Notify(ctx context.Context, n orders.Notification) error {
	const op = "notify.Kafka.Notify"

	payload, err := json.Marshal(n.Payload())
	if err != nil {
		return fmt.Errorf("%s: payload: %w", op, err)
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     n.Kind,
		EventVersion:  EventVersion,
		OccurredAt:    k.now(),
		Producer:      k.producer,
		TraceID:       TraceID(ctx),
		CorrelationID: n.Order.ID,
		Payload:       payload,
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: envelope: %w", op, err)
	}

	err = k.pub.Publish(ctx, orders.PartitionKey(n.Order.ID), value,
		kafkago.Header{Key: kafkax.HeaderEventType, Value: []byte(n.Kind)},
		kafkago.Header{Key: kafkax.HeaderEventVersion, Value: []byte(strconv.Itoa(EventVersion))},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type traceKey struct{}

// WithTraceID attaches the request id that ends up in Envelope.TraceID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
