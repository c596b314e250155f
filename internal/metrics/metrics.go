// Package metrics holds the Prometheus collectors of the dispatch services.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "dispatch"

// Metrics groups every collector. Components receive it through the
// container and never register collectors themselves.
type Metrics struct {
	AnnouncementsPublished prometheus.Counter
	Candidatures           *prometheus.CounterVec
	Assignments            *prometheus.CounterVec
	FollowUpErrors         *prometheus.CounterVec
	Reconciled             prometheus.Counter
	Cycles                 *prometheus.CounterVec
	CycleDuration          prometheus.Histogram
	CandidatesPerWindow    prometheus.Histogram
	JobsConsumed           *prometheus.CounterVec
	RelayDeliveries        *prometheus.CounterVec
	RelayRetries           prometheus.Counter
	RateLimitExceeded      prometheus.Counter
	HTTPRequests           *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
}

// New builds the collectors and registers them on reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnnouncementsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_published_total",
			Help:      "Total number of announcements appended by the manager",
		}),
		Candidatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidatures_total",
			Help:      "Courier decisions on announcements",
		}, []string{"decision"}),
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Assignment attempts by result",
		}, []string{"result"}),
		FollowUpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignment_follow_up_errors_total",
			Help:      "Failed writes after a stored selection",
		}, []string{"step"}),
		Reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_announcements_total",
			Help:      "Announcements repaired by the reconcile loop",
		}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Manager cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a manager cycle",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
		}),
		CandidatesPerWindow: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "candidates_per_window",
			Help:      "Candidatures collected in one bidding window",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		JobsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_consumed_total",
			Help:      "Jobs read from the intake topic by status",
		}, []string{"status"}),
		RelayDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_deliveries_total",
			Help:      "Documents forwarded by the relay",
		}, []string{"sink", "status"}),
		RelayRetries:      NewRelayRetriesTotal(),
		RateLimitExceeded: NewRateLimitExceededTotal(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.collectors()...)
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.AnnouncementsPublished,
		m.Candidatures,
		m.Assignments,
		m.FollowUpErrors,
		m.Reconciled,
		m.Cycles,
		m.CycleDuration,
		m.CandidatesPerWindow,
		m.JobsConsumed,
		m.RelayDeliveries,
		m.RelayRetries,
		m.RateLimitExceeded,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	}
}

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewRelayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by relay sinks
func NewRelayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_retries_total",
		Help:      "Total number of retry attempts performed by relay sinks",
	})
}
