// Package metrics exposes Prometheus instrumentation for the arena service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects arena operational metrics.
type Registry struct {
	registry *prometheus.Registry

	battlesIssued   prometheus.Counter
	votesIngested   *prometheus.CounterVec
	voteReplays     prometheus.Counter
	voteConflicts   prometheus.Counter
	battlesExpired  prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New creates a metrics registry with all arena collectors registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	m := &Registry{
		registry: reg,
		battlesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_battles_issued_total",
			Help: "Battles issued to clients.",
		}),
		votesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_votes_ingested_total",
			Help: "Votes accepted, labeled by result.",
		}, []string{"result"}),
		voteReplays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_vote_replays_total",
			Help: "Idempotent vote replays served without writes.",
		}),
		voteConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_vote_conflicts_total",
			Help: "Duplicate vote conflicts rejected.",
		}),
		battlesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arena_battles_expired_total",
			Help: "Stale issued battles swept to EXPIRED.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		m.battlesIssued,
		m.votesIngested,
		m.voteReplays,
		m.voteConflicts,
		m.battlesExpired,
		m.requestDuration,
	)

	return m
}

// BattleIssued records a successfully issued battle.
func (m *Registry) BattleIssued() {
	if m == nil {
		return
	}
	m.battlesIssued.Inc()
}

// VoteIngested records an accepted vote by result.
func (m *Registry) VoteIngested(result string) {
	if m == nil {
		return
	}
	m.votesIngested.WithLabelValues(result).Inc()
}

// VoteReplayed records an idempotent replay.
func (m *Registry) VoteReplayed() {
	if m == nil {
		return
	}
	m.voteReplays.Inc()
}

// VoteConflict records a duplicate-vote conflict.
func (m *Registry) VoteConflict() {
	if m == nil {
		return
	}
	m.voteConflicts.Inc()
}

// BattlesExpired records battles swept to EXPIRED.
func (m *Registry) BattlesExpired(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.battlesExpired.Add(float64(count))
}

// ObserveRequest records a request duration sample.
func (m *Registry) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the Prometheus exposition endpoint.
func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
