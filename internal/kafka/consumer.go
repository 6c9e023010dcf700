package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler returns nil only when the message is done and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	defaultRetryBase = 200 * time.Millisecond
	defaultRetryMax  = 30 * time.Second
)

type Consumer struct {
	log     *slog.Logger
	r       messageReader
	workers int

	retryBase time.Duration
	retryMax  time.Duration
}

func NewConsumer(log *slog.Logger, brokers []string, group, topic string, workers int) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
	})
	return newConsumer(log, r, workers)
}

func newConsumer(log *slog.Logger, r messageReader, workers int) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{
		log:       log.With(slog.String("component", "kafka.Consumer")),
		r:         r,
		workers:   workers,
		retryBase: defaultRetryBase,
		retryMax:  defaultRetryMax,
	}
}

// Start dispatches messages to h until ctx ends. Each partition is served by
// one worker, in offset order. A failed message is retried with backoff and
// holds back the rest of its partition, so no later offset is committed past
// it; when ctx ends first it stays uncommitted and is redelivered.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 1)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				c.process(ctx, id, h, m)
			}
		}(i, queues[i])
	}
	defer wg.Wait()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) process(ctx context.Context, worker int, h Handler, m kafka.Message) {
	logger := c.log.With(slog.Int("worker", worker), slog.Int64("offset", m.Offset), slog.Int("partition", m.Partition))

	wait := c.retryBase
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return
		}
		err := h(ctx, m)
		if err == nil {
			break
		}
		logger.Error("handle message", slog.Int("attempt", attempt), slog.Duration("retry_in", wait), slog.Any("error", err))
		select {
		case <-ctx.Done():
			logger.Warn("stopping with message uncommitted")
			return
		case <-time.After(wait):
		}
		wait = min(wait*2, c.retryMax)
	}

	if err := c.r.CommitMessages(ctx, m); err != nil {
		logger.Error("commit message", slog.Any("error", err))
	}
}
