package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/holycat-orders/internal/config"
	kafkax "github.com/ariefcatur/holycat-orders/internal/kafka"
	"github.com/ariefcatur/holycat-orders/internal/logger"
	"github.com/ariefcatur/holycat-orders/internal/notify"
	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/ariefcatur/holycat-orders/internal/redisx"
	pkgerrors "github.com/pkg/errors"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env).With(slog.String("process", "notifier"))

	if err := run(cfg, log); err != nil {
		log.Error("notifier stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("notifier gracefully stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisx.New(ctx, cfg.Redis)
	if err != nil {
		return pkgerrors.Wrap(err, "connect redis")
	}
	defer rdb.Close()

	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = orders.TopicOrderStatusChanged
	}
	d := notify.NewDispatcher(log, redisx.NewStore(rdb), notify.LogMailer{Log: log, From: cfg.Notifier.From})
	cons := kafkax.NewConsumer(log, cfg.Kafka.Brokers, cfg.Notifier.Group, topic, cfg.Notifier.Workers)

	log.Info("consumer started",
		slog.String("group", cfg.Notifier.Group),
		slog.String("topic", topic),
		slog.Int("workers", cfg.Notifier.Workers),
	)
	if err := cons.Start(ctx, d.Handle); err != nil {
		return pkgerrors.Wrap(err, "consume")
	}
	return nil
}
