package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors of the pipeline
type Metrics struct {
	// Idea lifecycle
	IdeaTransitions *prometheus.CounterVec
	Submissions     *prometheus.CounterVec

	// Triggers
	TriggerRuns     *prometheus.CounterVec
	TriggerDuration *prometheus.HistogramVec
	TriggerSkipped  *prometheus.CounterVec

	// Upstream services
	UpstreamErrors *prometheus.CounterVec

	// Reconciliation
	MergeChecks *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics creates and registers all collectors once per process
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			IdeaTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nuggets_idea_transitions_total",
					Help: "Idea status transitions",
				},
				[]string{"from", "to"},
			),
			Submissions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nuggets_submissions_total",
					Help: "Idea submissions by outcome",
				},
				[]string{"outcome"},
			),
			TriggerRuns: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nuggets_trigger_runs_total",
					Help: "Trigger invocations by outcome",
				},
				[]string{"trigger", "outcome"},
			),
			TriggerDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "nuggets_trigger_duration_seconds",
					Help:    "Duration of trigger invocations in seconds",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to 256s
				},
				[]string{"trigger"},
			),
			TriggerSkipped: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nuggets_trigger_skipped_total",
					Help: "Scheduled firings skipped because the previous run was still active",
				},
				[]string{"trigger"},
			),
			UpstreamErrors: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nuggets_upstream_errors_total",
					Help: "Failures of the generation and publication services",
				},
				[]string{"service"},
			),
			MergeChecks: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nuggets_merge_checks_total",
					Help: "Pull request merge checks by result",
				},
				[]string{"result"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "nuggets_http_requests_total",
					Help: "HTTP requests by route and status",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "nuggets_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
		}
	})
	return sharedMetrics
}

// RecordTransition counts one status change
func (m *Metrics) RecordTransition(from, to string) {
	m.IdeaTransitions.WithLabelValues(from, to).Inc()
}

// RecordSubmission counts one submission outcome
func (m *Metrics) RecordSubmission(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

// RecordTrigger counts one trigger run and observes its duration
func (m *Metrics) RecordTrigger(trigger string, success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	m.TriggerRuns.WithLabelValues(trigger, outcome).Inc()
	m.TriggerDuration.WithLabelValues(trigger).Observe(seconds)
}

// RecordUpstreamError counts one failure of service
func (m *Metrics) RecordUpstreamError(service string) {
	m.UpstreamErrors.WithLabelValues(service).Inc()
}

// RecordMergeCheck counts one merge status lookup by result
func (m *Metrics) RecordMergeCheck(result string) {
	m.MergeChecks.WithLabelValues(result).Inc()
}

// RecordSkippedTrigger counts a firing dropped because the previous run was still active
func (m *Metrics) RecordSkippedTrigger(trigger string) {
	m.TriggerSkipped.WithLabelValues(trigger).Inc()
}

// RecordHTTPRequest counts and times one request
func (m *Metrics) RecordHTTPRequest(method, route, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}
