// Package metrics exposes the Prometheus instruments recorded by the application services.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics is the contract every service records against.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
}

// MatchmakingMetrics adds the lobby-specific counters.
type MatchmakingMetrics interface {
	OperationMetrics
	RecordGameFormed(ctx context.Context, pickMode string)
	RecordGameResolved(ctx context.Context, outcome string)
	RecordVoteCast(ctx context.Context, vote string)
	RecordQueueEviction(ctx context.Context, count int)
	RecordAnnouncementDropped(ctx context.Context, kind string)
}

// PrometheusMetrics implements MatchmakingMetrics on a Prometheus registerer.
type PrometheusMetrics struct {
	attempts      *prometheus.CounterVec
	successes     *prometheus.CounterVec
	failures      *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	gamesFormed   *prometheus.CounterVec
	gamesResolved *prometheus.CounterVec
	votes         *prometheus.CounterVec
	evictions     prometheus.Counter
	dropped       *prometheus.CounterVec
}

// NewPrometheusMetrics registers the instruments on reg.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_attempts_total",
			Help:      "Service operations attempted.",
		}, []string{"service", "operation"}),
		successes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_success_total",
			Help:      "Service operations that completed without an infrastructure error.",
		}, []string{"service", "operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Service operations that returned an infrastructure error or panicked.",
		}, []string{"service", "operation"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "operation"}),
		gamesFormed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_formed_total",
			Help:      "Games formed from a full queue.",
		}, []string{"pick_mode"}),
		gamesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_resolved_total",
			Help:      "Games that reached a terminal state.",
		}, []string{"outcome"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Result votes cast by players.",
		}, []string{"vote"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_evictions_total",
			Help:      "Players removed from a queue by the timeout sweep.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "announcements_dropped_total",
			Help:      "Announcements dropped because the outbox was full.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.attempts, m.successes, m.failures, m.durations,
		m.gamesFormed, m.gamesResolved, m.votes, m.evictions, m.dropped,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.attempts.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.successes.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.failures.WithLabelValues(service, operation).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.durations.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordGameFormed(_ context.Context, pickMode string) {
	m.gamesFormed.WithLabelValues(pickMode).Inc()
}

func (m *PrometheusMetrics) RecordGameResolved(_ context.Context, outcome string) {
	m.gamesResolved.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordVoteCast(_ context.Context, vote string) {
	m.votes.WithLabelValues(vote).Inc()
}

func (m *PrometheusMetrics) RecordQueueEviction(_ context.Context, count int) {
	m.evictions.Add(float64(count))
}

func (m *PrometheusMetrics) RecordAnnouncementDropped(_ context.Context, kind string) {
	m.dropped.WithLabelValues(kind).Inc()
}

// NoOpMetrics discards everything.
type NoOpMetrics struct{}

// NewNoop returns a MatchmakingMetrics that records nothing.
func NewNoop() NoOpMetrics { return NoOpMetrics{} }

func (NoOpMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoOpMetrics) RecordGameFormed(context.Context, string)                               {}
func (NoOpMetrics) RecordGameResolved(context.Context, string)                             {}
func (NoOpMetrics) RecordVoteCast(context.Context, string)                                 {}
func (NoOpMetrics) RecordQueueEviction(context.Context, int)                               {}
func (NoOpMetrics) RecordAnnouncementDropped(context.Context, string)                      {}

var (
	_ MatchmakingMetrics = (*PrometheusMetrics)(nil)
	_ MatchmakingMetrics = NoOpMetrics{}
)
