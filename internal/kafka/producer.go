package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrProducerClosed = errors.New("producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer hands messages to a background writer loop so request handlers
// never wait on the broker. Write errors are logged, not returned.
type Producer struct {
	log   *slog.Logger
	w     messageWriter
	inbox chan kafka.Message
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	writeTimeout time.Duration
}

func NewProducer(log *slog.Logger, brokers []string, topic string, buf int) *Producer {
	return newProducer(log, &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, buf)
}

func newProducer(log *slog.Logger, w messageWriter, buf int) *Producer {
	if buf <= 0 {
		buf = 1
	}
	return &Producer{
		log:          log.With(slog.String("component", "kafka.Producer")),
		w:            w,
		inbox:        make(chan kafka.Message, buf),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		writeTimeout: 10 * time.Second,
	}
}

func (p *Producer) Start() {
	go func() {
		defer close(p.done)
		for {
			select {
			case m := <-p.inbox:
				p.write(m)
			case <-p.quit:
				for {
					select {
					case m := <-p.inbox:
						p.write(m)
					default:
						if err := p.w.Close(); err != nil {
							p.log.Error("close writer", slog.Any("error", err))
						}
						return
					}
				}
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("write message", slog.String("key", string(m.Key)), slog.Any("error", err))
	}
}

// Publish queues a message. It blocks only while the queue is full.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	select {
	case <-p.quit:
		return ErrProducerClosed
	default:
	}
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.quit:
		return ErrProducerClosed
	}
}

// Close stops accepting messages, flushes the queue and waits for the writer
// loop started by Start.
func (p *Producer) Close() {
	p.once.Do(func() { close(p.quit) })
	<-p.done
}
