package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Kafka is shared by every binary; each process owns one Broker built from it.
type Kafka struct {
	Brokers  []string `env:"KAFKA_BROKERS" envDefault:"kafka:9092"`
	ClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"eventflow"`
}

// SMTP configures the notification mail transport.
type SMTP struct {
	Host string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	Port int    `env:"SMTP_PORT" envDefault:"587"`
	User string `env:"SMTP_USER"`
	Pass string `env:"SMTP_PASS"`
	From string `env:"SMTP_FROM" envDefault:"no-reply@eventflow.local"`
}

// Audit configures the audit service (auditd).
type Audit struct {
	Addr        string `env:"AUDIT_ADDR" envDefault:":3006"`
	PostgresDSN string `env:"AUDIT_POSTGRES_DSN"`
	Kafka
}

// Notifier configures the notification service (notifierd).
type Notifier struct {
	Addr             string `env:"NOTIFIER_ADDR" envDefault:":3004"`
	DefaultRecipient string `env:"DEFAULT_NOTIFICATION_EMAIL"`
	Kafka
	SMTP
}

// Events configures the event service core (eventd).
type Events struct {
	Addr     string `env:"EVENTS_ADDR" envDefault:":3002"`
	RedisURL string `env:"REDIS_URL"`
	Kafka
}

func LoadAudit() (Audit, error) {
	var cfg Audit
	if err := env.Parse(&cfg); err != nil {
		return Audit{}, fmt.Errorf("parse audit config: %w", err)
	}
	return cfg, nil
}

func LoadNotifier() (Notifier, error) {
	var cfg Notifier
	if err := env.Parse(&cfg); err != nil {
		return Notifier{}, fmt.Errorf("parse notifier config: %w", err)
	}
	return cfg, nil
}

func LoadEvents() (Events, error) {
	var cfg Events
	if err := env.Parse(&cfg); err != nil {
		return Events{}, fmt.Errorf("parse events config: %w", err)
	}
	return cfg, nil
}
