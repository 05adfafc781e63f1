package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leaguesync"

// Metrics groups the collectors the sync and notification paths report to
type Metrics struct {
	SyncRuns                *prometheus.CounterVec
	SyncDuration            *prometheus.HistogramVec
	MatchUpserts            *prometheus.CounterVec
	NotificationsCreated    *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec
	NotificationsDelivered  *prometheus.CounterVec

	registry *prometheus.Registry
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Category reconciliation runs by outcome (changed, unchanged, error).",
		}, []string{"category", "outcome"}),
		SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of one category reconciliation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		MatchUpserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_upserts_total",
			Help:      "Match upserts by kind (normal, golden).",
		}, []string{"category", "kind"}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notification records created by type.",
		}, []string{"type"}),
		NotificationsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_suppressed_total",
			Help:      "Notifications not created, by reason.",
		}, []string{"reason"}),
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Delivery attempts by resulting status.",
		}, []string{"status"}),
		registry: reg,
	}

	reg.MustRegister(
		m.SyncRuns,
		m.SyncDuration,
		m.MatchUpserts,
		m.NotificationsCreated,
		m.NotificationsSuppressed,
		m.NotificationsDelivered,
		collectors.NewGoCollector(),
	)

	return m
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
