// notifierd is the notification service: it turns registration.created
// events into confirmation emails and user.created events into welcome
// emails, publishing notification.sent / notification.failed and
// fire-and-forget audit notices along the way.
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

	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
	"eventflow/internal/notification"
	"eventflow/internal/platform/config"
	"eventflow/internal/platform/httpserver"
	"eventflow/internal/platform/kafka"
	"eventflow/internal/platform/logger"
	"eventflow/internal/platform/metrics"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

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
	mailer := notification.NewSMTPMailer(cfg.SMTP)

	registration := notification.NewRegistrationHandler(
		mailer, publisher, cfg.DefaultRecipient, log, notification.WithMetrics(m))
	welcome := notification.NewWelcomeHandler(mailer, publisher, log, m)

	subscriptions := []struct {
		group   string
		topic   event.Topic
		handler consumer.Handler
	}{
		{"notification-group", event.TopicRegistrationCreated, registration},
		{"user-group", event.TopicUserCreated, welcome},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, sub := range subscriptions {
		src, err := broker.OpenConsumerGroup(ctx, sub.group, string(sub.topic))
		if err != nil {
			log.Error("consumer open failed", "group", sub.group, "error", err)
			os.Exit(1)
		}
		runner := consumer.NewRunner(sub.group, src, sub.handler, log, consumer.WithMetrics(m))
		g.Go(func() error {
			defer src.Close()
			return runner.Run(ctx)
		})
		log.Info("consumer started", "group", sub.group, "topic", sub.topic)
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("notification service listening", "addr", cfg.Addr)
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
		log.Error("notification service exited", "error", err)
		os.Exit(1)
	}
}
