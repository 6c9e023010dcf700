package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/holycat-orders/internal/config"
	"github.com/ariefcatur/holycat-orders/internal/httpx"
	kafkax "github.com/ariefcatur/holycat-orders/internal/kafka"
	"github.com/ariefcatur/holycat-orders/internal/logger"
	"github.com/ariefcatur/holycat-orders/internal/notify"
	"github.com/ariefcatur/holycat-orders/internal/orders"
	"github.com/ariefcatur/holycat-orders/internal/payment"
	"github.com/ariefcatur/holycat-orders/internal/postgres"
	"github.com/ariefcatur/holycat-orders/internal/redisx"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)
	log.Info("starting api", slog.String("env", cfg.Env), slog.String("address", cfg.HTTPServer.Address))

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("api gracefully stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Postgres)
	if err != nil {
		return pkgerrors.Wrap(err, "connect postgres")
	}
	defer db.Close()

	rdb, err := redisx.New(ctx, cfg.Redis)
	if err != nil {
		return pkgerrors.Wrap(err, "connect redis")
	}
	defer rdb.Close()
	cache := redisx.NewStore(rdb)

	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = orders.TopicOrderStatusChanged
	}
	prod := kafkax.NewProducer(log, cfg.Kafka.Brokers, topic, cfg.Kafka.ProducerQueue)
	prod.Start()
	defer prod.Close()

	var gateway orders.Gateway
	if cfg.Midtrans.ServerKey != "" {
		gateway = payment.NewSnapClient(cfg.Midtrans.BaseURL, cfg.Midtrans.ServerKey, cfg.Midtrans.Timeout)
	} else {
		log.Warn("midtrans server key not set, gateway payments disabled")
	}

	svc := orders.NewService(log, &orders.Repo{DB: db}, notify.Fanout{
		notify.NewStatusCache(cache),
		notify.NewKafka(prod, cfg.ServiceName),
	}, gateway)

	router := httpx.NewRouter(log, httpx.Deps{
		Orders:            svc,
		Payments:          svc,
		Admin:             svc,
		Idempotency:       cache,
		Statuses:          cache,
		Dedup:             cache,
		JWTSecret:         cfg.JWT.Secret,
		CookieName:        cfg.JWT.CookieName,
		MidtransServerKey: cfg.Midtrans.ServerKey,
		RequestTimeout:    cfg.HTTPServer.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.RequestTimeout + cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return pkgerrors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
