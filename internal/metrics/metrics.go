package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the transcription job lifecycle.
type Metrics struct {
	JobsSubmitted prometheus.Counter
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
	JobsTimedOut  prometheus.Counter
	JobsInFlight  prometheus.Gauge
	PollAttempts  prometheus.Counter

	WebhookAccepted  prometheus.Counter
	WebhookRejected  prometheus.Counter
	WebhookUnmatched prometheus.Counter

	HTTPRequests *prometheus.CounterVec
}

// New creates and registers all metrics against the given registerer. Tests
// pass a fresh prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_jobs_submitted_total",
			Help: "Total number of transcription jobs created",
		}),
		JobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_jobs_completed_total",
			Help: "Total number of jobs that reached the completed state",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_jobs_failed_total",
			Help: "Total number of jobs that reached the error state",
		}),
		JobsTimedOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_jobs_timed_out_total",
			Help: "Total number of jobs failed because the poll budget was exhausted",
		}),
		JobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicebridge_jobs_in_flight",
			Help: "Current number of jobs not yet in a terminal state",
		}),
		PollAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_poll_attempts_total",
			Help: "Total number of provider status polls performed",
		}),
		WebhookAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_webhook_accepted_total",
			Help: "Total number of provider webhook notifications accepted",
		}),
		WebhookRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_webhook_rejected_total",
			Help: "Total number of provider webhook notifications rejected for bad credentials",
		}),
		WebhookUnmatched: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_webhook_unmatched_total",
			Help: "Total number of provider webhook notifications with no matching job",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "status"}),
	}
}
