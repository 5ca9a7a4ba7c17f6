// metrics.go - Prometheus metrics for the prover daemon
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shieldedactions/internal/prover"
	"shieldedactions/internal/transactions"
)

const metricsNamespace = "shielded_prover"

// MetricsCollector owns the daemon's registry and collectors.
type MetricsCollector struct {
	registry *prometheus.Registry

	jobsSubmitted *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	proofDuration *prometheus.HistogramVec
	requests      *prometheus.CounterVec
	errors        *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

// NewMetricsCollector registers the collectors. store, when set, feeds the per-status job gauge.
func NewMetricsCollector(store *prover.JobStore) *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_submitted_total",
			Help:      "Proof jobs accepted, by kind.",
		}, []string{"kind"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_finished_total",
			Help:      "Proof jobs reaching a terminal status, by kind and status.",
		}, []string{"kind", "status"}),
		proofDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "proof_duration_seconds",
			Help:      "Time from job start to terminal status.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"method", "route", "code"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Rejected requests, by error class.",
		}, []string{"class"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the per-client rate limiter.",
		}),
	}

	mc.registry.MustRegister(
		mc.jobsSubmitted,
		mc.jobsFinished,
		mc.proofDuration,
		mc.requests,
		mc.errors,
		mc.rateLimited,
	)
	if store != nil {
		for _, st := range []prover.Status{prover.StatusPending, prover.StatusGenerating, prover.StatusCompleted, prover.StatusFailed} {
			st := st
			mc.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace:   metricsNamespace,
				Name:        "jobs",
				Help:        "Jobs held by the store, by status.",
				ConstLabels: prometheus.Labels{"status": string(st)},
			}, func() float64 { return float64(store.Counts()[st]) }))
		}
	}
	return mc
}

// RecordSubmission counts an accepted job.
func (mc *MetricsCollector) RecordSubmission(kind transactions.Kind) {
	mc.jobsSubmitted.WithLabelValues(string(kind)).Inc()
}

// RecordJob observes a job that reached a terminal status. It has the prover.FinishFunc shape.
func (mc *MetricsCollector) RecordJob(job *prover.Job, elapsed time.Duration) {
	mc.jobsFinished.WithLabelValues(string(job.Kind), string(job.Status)).Inc()
	mc.proofDuration.WithLabelValues(string(job.Kind)).Observe(elapsed.Seconds())
}

// RecordRequest counts a served HTTP request.
func (mc *MetricsCollector) RecordRequest(method, route string, code int) {
	mc.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// RecordError counts a rejected request by class.
func (mc *MetricsCollector) RecordError(class string) {
	mc.errors.WithLabelValues(class).Inc()
}

// RecordRateLimited counts a refused request.
func (mc *MetricsCollector) RecordRateLimited() {
	mc.rateLimited.Inc()
}

// Registry exposes the registry for tests and extra collectors.
func (mc *MetricsCollector) Registry() *prometheus.Registry { return mc.registry }

// Handler serves the registry in the Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
