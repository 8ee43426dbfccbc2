package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for a service process. Dropped
// messages get their own counter because the consumer policy is to drop and
// continue: without the metric a malformed message disappears silently.
type Metrics struct {
	EventsPublished *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	EventsConsumed  *prometheus.CounterVec
	MessagesDropped *prometheus.CounterVec
	HandlerFailures *prometheus.CounterVec
	AuditRecords    prometheus.Counter
	AuditFailures   prometheus.Counter
	EmailsSent      prometheus.Counter
	EmailsFailed    prometheus.Counter
}

// New creates and registers all metrics. Pass nil to use the default
// registerer; tests pass their own prometheus.NewRegistry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventflow_events_published_total",
			Help: "Events published to the broker, by topic.",
		}, []string{"topic"}),
		PublishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventflow_publish_failures_total",
			Help: "Publishes rejected by the broker, by topic.",
		}, []string{"topic"}),
		EventsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventflow_events_consumed_total",
			Help: "Messages successfully handled, by consumer group and topic.",
		}, []string{"group", "topic"}),
		MessagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventflow_messages_dropped_total",
			Help: "Messages dropped without side effects, by group and reason.",
		}, []string{"group", "reason"}),
		HandlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventflow_handler_failures_total",
			Help: "Handler errors after which the loop continued, by group.",
		}, []string{"group"}),
		AuditRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventflow_audit_records_total",
			Help: "Audit records persisted.",
		}),
		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventflow_audit_failures_total",
			Help: "Audit persistence failures that triggered compensation.",
		}),
		EmailsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventflow_emails_sent_total",
			Help: "Confirmation and welcome emails handed to the mail transport.",
		}),
		EmailsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventflow_emails_failed_total",
			Help: "Email sends that failed.",
		}),
	}
}
