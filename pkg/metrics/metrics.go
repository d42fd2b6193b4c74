package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Token lifecycle metrics
	TokensIssued   *prometheus.CounterVec
	TokensCalled   *prometheus.CounterVec
	TokensVisited  *prometheus.CounterVec
	TokensHalted   *prometheus.CounterVec
	TokensRequeued prometheus.Counter
	WaitingTokens  *prometheus.GaugeVec

	// Doctor metrics
	DoctorsOnBreak prometheus.Gauge

	// Sync metrics
	SyncPublished       prometheus.Counter
	SyncPublishFailures prometheus.Counter
	SyncApplied         prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of tokens issued",
		}, []string{"service_type"}),
		TokensCalled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_called_total",
			Help:      "Total number of tokens called to a cabin",
		}, []string{"service_type"}),
		TokensVisited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_visited_total",
			Help:      "Total number of tokens completed",
		}, []string{"service_type"}),
		TokensHalted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_halted_total",
			Help:      "Total number of tokens moved to the halted pool",
		}, []string{"service_type"}),
		TokensRequeued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_requeued_total",
			Help:      "Total number of halted tokens returned to the queue",
		}),
		WaitingTokens: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "waiting_tokens",
			Help:      "Current number of waiting tokens",
		}, []string{"service_type"}),
		DoctorsOnBreak: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "doctors_on_break",
			Help:      "Current number of doctors on break",
		}),
		SyncPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_snapshots_published_total",
			Help:      "Total number of state snapshots persisted and broadcast",
		}),
		SyncPublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_publish_failures_total",
			Help:      "Total number of snapshot persist/broadcast failures",
		}),
		SyncApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_snapshots_applied_total",
			Help:      "Total number of remote snapshots applied",
		}),
	}
}
