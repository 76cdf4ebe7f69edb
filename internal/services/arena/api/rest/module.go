// Package rest exposes the arena/v0 JSON surface over HTTP.
package rest

import (
	"net/http"

	"github.com/louisbranch/pcg.arena/internal/platform/metrics"
	"github.com/louisbranch/pcg.arena/internal/services/arena/app"
)

// Module bundles the arena handlers with their middleware stack.
type Module struct {
	service *app.Service
	metrics *metrics.Registry
}

// NewModule builds the REST module. metrics may be nil.
func NewModule(service *app.Service, registry *metrics.Registry) *Module {
	return &Module{service: service, metrics: registry}
}

// Register attaches all arena routes to the mux.
func (m *Module) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		method  string
		handler http.HandlerFunc
	}{
		{"/v1/battles:next", http.MethodPost, m.handleNextBattle},
		{"/v1/battles/{id}", http.MethodGet, m.handleGetBattle},
		{"/v1/votes", http.MethodPost, m.handleCastVote},
		{"/v1/leaderboard", http.MethodGet, m.handleLeaderboard},
		{"/v1/stats/confusion-matrix", http.MethodGet, m.handleConfusionMatrix},
		{"/v1/stats/matchmaking", http.MethodGet, m.handleMatchmakingStats},
		{"/v1/stats/platform", http.MethodGet, m.handlePlatformStats},
		{"/health", http.MethodGet, m.handleHealth},
	}
	for _, route := range routes {
		mux.Handle(route.pattern, Chain(route.handler,
			RequestID(),
			RecoverPanic(),
			RequireMethod(route.method),
			ObserveRequests(m.metrics, route.pattern),
		))
	}
	mux.Handle("/metrics", m.metrics.Handler())
}
