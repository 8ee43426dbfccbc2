// auditd is the audit service: the system-of-record for every audit-worthy
// event. It consumes the audit-worthy topics, serves the direct /audit
// ingress, and writes the SYSTEM_STARTUP marker at boot.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"eventflow/internal/audit"
	auditconsumer "eventflow/internal/audit/consumer"
	audithttp "eventflow/internal/audit/handler"
	"eventflow/internal/audit/store/memory"
	"eventflow/internal/audit/store/postgres"
	"eventflow/internal/event"
	"eventflow/internal/event/consumer"
	"eventflow/internal/platform/config"
	"eventflow/internal/platform/httpserver"
	"eventflow/internal/platform/kafka"
	"eventflow/internal/platform/logger"
	"eventflow/internal/platform/metrics"
)

func main() {
	log := logger.New()

	cfg, err := config.LoadAudit()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	var store audit.Store
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		pg := postgres.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensure audit schema", "error", err)
			os.Exit(1)
		}
		store = pg
		log.Info("postgres connection established")
	} else {
		log.Warn("AUDIT_POSTGRES_DSN not set, audit records are not durable")
		store = memory.New()
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
	recorder := audit.NewRecorder(store, publisher, log, audit.WithMetrics(m))

	startup, _ := json.Marshal(map[string]string{
		"message":   "audit service started successfully",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if _, err := recorder.Record(ctx, audit.TypeSystemStartup, startup); err != nil {
		log.Error("startup audit failed", "error", err)
		os.Exit(1)
	}
	log.Info("system startup audit logged")

	subscriptions := []struct {
		group   string
		topic   event.Topic
		handler consumer.Handler
	}{
		{"audit-user-created", event.TopicUserCreated, auditconsumer.NewUserCreated(recorder, log)},
		{"audit-user-logged", event.TopicUserLoggedIn, auditconsumer.NewUserLoggedIn(recorder, log)},
		{"audit-registration-created", event.TopicRegistrationCreated, auditconsumer.NewRegistrationCreated(recorder, log)},
		{"audit-event-updated", event.TopicEventUpdated, auditconsumer.NewEventUpdated(recorder, log)},
		{"audit-email-sent", event.TopicNotificationSent, auditconsumer.NewNotificationSent(recorder, log)},
		{"audit-audit-logged", event.TopicAuditLogged, auditconsumer.NewAuditLogged(recorder, log)},
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
	audithttp.New(recorder, log).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("audit service listening", "addr", cfg.Addr)
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
		log.Error("audit service exited", "error", err)
		os.Exit(1)
	}
}
