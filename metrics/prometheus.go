package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

var HttpIdempotentReplaysTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_idempotent_replays_total",
		Help: "Total number of responses replayed from the idempotency cache",
	},
)

var RemindersAttemptedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminders_attempted_total",
		Help: "Total number of reminder attempts recorded",
	},
	[]string{"channel", "type", "status", "triggered_by"},
)

var RemindersSkippedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminders_skipped_total",
		Help: "Total number of reminders skipped before any send",
	},
	[]string{"channel", "reason"},
)

var ReminderSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "reminder_send_duration_seconds",
		Help:    "Time taken to send reminders via external providers",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider", "channel"},
)

var ReminderRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminder_runs_total",
		Help: "Total number of automatic reminder evaluations",
	},
	[]string{"result"},
)

var KafkaPublishFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_failure_total",
		Help: "Total number of failed Kafka publishes",
	},
	[]string{"topic"},
)

var KafkaSubscriberFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_subscriber_failure_total",
		Help: "Total number of failed Kafka subscribes",
	},
	[]string{"topic"},
)

var ReminderDLQTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reminder_dlq_total",
		Help: "Total number of bulk jobs sent to the dead letter topic",
	},
	[]string{"reason"},
)

var ExternalAPISuccessTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "external_api_success_total",
		Help: "Total number of successful external API calls",
	},
	[]string{"provider", "service"},
)

var ExternalAPIFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "external_api_failure_total",
		Help: "Total number of failed external API calls",
	},
	[]string{"provider", "service"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
	prometheus.MustRegister(HttpRateLimitRejectionsTotal)
	prometheus.MustRegister(HttpIdempotentReplaysTotal)
}

func InitReminderMetrics() {
	prometheus.MustRegister(RemindersAttemptedTotal)
	prometheus.MustRegister(RemindersSkippedTotal)
	prometheus.MustRegister(ReminderSendDuration)
	prometheus.MustRegister(ReminderRunsTotal)
	prometheus.MustRegister(ExternalAPISuccessTotal)
	prometheus.MustRegister(ExternalAPIFailureTotal)
}

func InitKafkaMetrics() {
	prometheus.MustRegister(KafkaPublishFailureTotal)
	prometheus.MustRegister(KafkaSubscriberFailureTotal)
	prometheus.MustRegister(ReminderDLQTotal)
}
