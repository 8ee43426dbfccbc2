// eventd runs the event service's choreography core: the
// registration.created consumer that maintains each event's registered
// count and republishes it as event.updated.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"eventflow/internal/attendance"
	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
	"eventflow/internal/platform/config"
	"eventflow/internal/platform/httpserver"
	"eventflow/internal/platform/kafka"
	"eventflow/internal/platform/logger"
	"eventflow/internal/platform/metrics"
	platformredis "eventflow/internal/platform/redis"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadEvents()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	var store attendance.Store
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		store = attendance.NewRedisStore(redisClient.Client)
		log.Info("redis connection established")
	} else {
		log.Warn("REDIS_URL not set, registered counts are not shared across replicas")
		store = attendance.NewMemoryStore()
	}

	broker := kafka.NewBroker(kafka.Config{Brokers: cfg.Brokers, ClientID: cfg.ClientID}, log)
	if err := broker.EnsurePublisher(ctx); err != nil {
		log.Error("kafka connect failed", "error", err)
		os.Exit(1)
	}
	defer broker.Close()
	if err := broker.EnsureTopics(ctx, event.TopicNames()); err != nil {
		log.Error("topic provisioning failed", "error", err)
		os.Exit(1)
	}

	publisher := event.NewPublisher(broker, log, event.WithMetrics(m))
	handler := attendance.NewHandler(store, publisher, "event-service", log)

	src, err := broker.OpenConsumerGroup(ctx, "event-group", string(event.TopicRegistrationCreated))
	if err != nil {
		log.Error("consumer open failed", "group", "event-group", "error", err)
		os.Exit(1)
	}
	runner := consumer.NewRunner("event-group", src, handler, log, consumer.WithMetrics(m))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer src.Close()
		return runner.Run(ctx)
	})
	log.Info("consumer started", "group", "event-group", "topic", event.TopicRegistrationCreated)

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("event service listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("event service exited", "error", err)
		os.Exit(1)
	}
}
