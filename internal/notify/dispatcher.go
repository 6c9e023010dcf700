package notify

import (
	"context"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/holycat-orders/internal/kafka"
	"github.com/ariefcatur/holycat-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

const dedupScope = "notifier"

type deduper interface {
	FirstSeen(ctx context.Context, scope, id string) (bool, error)
	Forget(ctx context.Context, scope, id string) error
}

// Dispatcher turns order events from Kafka into customer mails, at most
// once per event id.
type Dispatcher struct {
	log    *slog.Logger
	dedup  deduper
	mailer Mailer
}

func NewDispatcher(log *slog.Logger, dedup deduper, mailer Mailer) *Dispatcher {
	return &Dispatcher{log: log, dedup: dedup, mailer: mailer}
}

// Handle is a kafka.Handler. Undecodable messages are dropped; a failed send
// is returned so the consumer retries it before committing the offset.
func (d *Dispatcher) Handle(ctx context.Context, m kafkago.Message) error {
	const op = "notify.Dispatcher.Handle"
	logger := d.log.With(slog.String("op", op), slog.String("key", string(m.Key)))

	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		logger.Error("drop message", slog.Any("error", err))
		return nil
	}
	logger = logger.With(slog.String("event_id", env.EventID), slog.String("event_type", string(env.EventType)))

	p, err := kafkax.UnwrapPayload[orders.StatusChangedPayload](env.Payload)
	if err != nil {
		logger.Error("drop message", slog.Any("error", err))
		return nil
	}
	msg, ok := Compose(p)
	if !ok {
		logger.Debug("no mail for status", slog.String("status", string(p.To)))
		return nil
	}

	first, err := d.dedup.FirstSeen(ctx, dedupScope, env.EventID)
	if err != nil {
		return fmt.Errorf("%s: dedup: %w", op, err)
	}
	if !first {
		logger.Info("duplicate event skipped")
		return nil
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		if ferr := d.dedup.Forget(ctx, dedupScope, env.EventID); ferr != nil {
			logger.Error("forget dedup key", slog.Any("error", ferr))
		}
		return fmt.Errorf("%s: send: %w", op, err)
	}
	logger.Info("customer notified", slog.String("order_id", p.OrderID), slog.String("status", string(p.To)))
	return nil
}
