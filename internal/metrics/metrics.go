// AngelaMos | 2026
// metrics.go

// Package metrics owns the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "pamoja_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once
	registry     *prometheus.Registry

	entriesSubmitted  *prometheus.CounterVec
	entriesReviewed   *prometheus.CounterVec
	reviewLatency     *prometheus.HistogramVec
	recomputeDrift    prometheus.Counter
	reconcileRuns     *prometheus.CounterVec
	notifyOutcomes    *prometheus.CounterVec
	notifyQueueDepth  prometheus.Gauge
	applicationEvents *prometheus.CounterVec
	activityRecords   *prometheus.CounterVec
	dependencyUp      *prometheus.GaugeVec
)

// Init registers collectors once. Calling it again is a no-op.
func Init() {
	registerOnce.Do(func() {
		registry = prometheus.NewRegistry()

		entriesSubmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_entries_submitted_total",
				Help: "Ledger entries submitted by kind",
			},
			[]string{"kind"},
		)
		entriesReviewed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_entries_reviewed_total",
				Help: "Ledger entries reviewed by kind and decision",
			},
			[]string{"kind", "decision"},
		)
		reviewLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_review_latency_seconds",
				Help:    "Review transaction latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		recomputeDrift = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "membership_recompute_drift_total",
				Help: "Members whose stored aggregate differed from their history",
			},
		)
		reconcileRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reconcile_runs_total",
				Help: "Reconciliation runs by result",
			},
			[]string{"result"},
		)
		notifyOutcomes = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notifications by topic and outcome",
			},
			[]string{"topic", "outcome"},
		)
		notifyQueueDepth = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "notification_queue_depth",
				Help: "Notifications waiting for a worker",
			},
		)
		applicationEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "applications_total",
				Help: "Membership application events by stage",
			},
			[]string{"stage"},
		)

		activityRecords = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "activity_records_total",
				Help: "Member activity records by kind and outcome",
			},
			[]string{"kind", "outcome"},
		)

		dependencyUp = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "dependency_up",
				Help: "Last readiness probe result per dependency",
			},
			[]string{"dependency"},
		)

		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			entriesSubmitted,
			entriesReviewed,
			reviewLatency,
			recomputeDrift,
			reconcileRuns,
			notifyOutcomes,
			notifyQueueDepth,
			applicationEvents,
			activityRecords,
			dependencyUp,
		)
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors.
func Registry() *prometheus.Registry {
	Init()
	return registry
}

func ObserveSubmission(kind string) {
	Init()
	entriesSubmitted.WithLabelValues(kind).Inc()
}

func ObserveReview(kind, decision string, err error, elapsed time.Duration) {
	Init()
	result := ResultSuccess
	if err != nil {
		result = ResultError
	} else {
		entriesReviewed.WithLabelValues(kind, decision).Inc()
	}
	reviewLatency.WithLabelValues(result).Observe(elapsed.Seconds())
}

func ObserveDrift() {
	Init()
	recomputeDrift.Inc()
}

func ObserveReconcile(err error) {
	Init()
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	reconcileRuns.WithLabelValues(result).Inc()
}

func ObserveNotification(topic, outcome string) {
	Init()
	notifyOutcomes.WithLabelValues(topic, outcome).Inc()
}

func SetQueueDepth(n int) {
	Init()
	notifyQueueDepth.Set(float64(n))
}

func ObserveApplication(stage string) {
	Init()
	applicationEvents.WithLabelValues(stage).Inc()
}

func ObserveActivity(kind string, err error) {
	Init()
	outcome := "recorded"
	if err != nil {
		outcome = "failed"
	}
	activityRecords.WithLabelValues(kind, outcome).Inc()
}

func SetDependencyUp(name string, up bool) {
	Init()
	v := 0.0
	if up {
		v = 1
	}
	dependencyUp.WithLabelValues(name).Set(v)
}
