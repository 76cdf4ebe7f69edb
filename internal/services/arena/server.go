// Package arena composes the arena service: SQLite store, application
// core, REST surface, and the battle expiry sweep.
package arena

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/louisbranch/pcg.arena/internal/platform/metrics"
	"github.com/louisbranch/pcg.arena/internal/random"
	"github.com/louisbranch/pcg.arena/internal/services/arena/api/rest"
	"github.com/louisbranch/pcg.arena/internal/services/arena/app"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage/sqlite"
)

var timeouts = struct {
	ReadHeader time.Duration
	Shutdown   time.Duration
}{
	ReadHeader: 5 * time.Second,
	Shutdown:   10 * time.Second,
}

// Config holds the arena server configuration.
type Config struct {
	HTTPAddr      string
	DBPath        string
	BattleTTL     time.Duration
	SweepInterval time.Duration
	Matchmaking   matchmaking.Params
}

// Server owns the arena process resources.
type Server struct {
	httpAddr      string
	httpServer    *http.Server
	store         *sqlite.Store
	service       *app.Service
	sweepInterval time.Duration
}

// NewServer opens the store and wires the application and REST layers.
func NewServer(cfg Config) (*Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, errors.New("http address is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	seed, err := random.NewSeed()
	if err != nil {
		return nil, fmt.Errorf("seed matchmaking rng: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	params := cfg.Matchmaking
	if params == (matchmaking.Params{}) {
		params = matchmaking.DefaultParams()
	}

	registry := metrics.New()
	service := app.New(store,
		app.WithParams(params),
		app.WithMetrics(registry),
		app.WithBattleTTL(cfg.BattleTTL),
		app.WithRand(rand.New(rand.NewSource(seed))),
	)

	mux := http.NewServeMux()
	rest.NewModule(service, registry).Register(mux)

	return &Server{
		httpAddr: cfg.HTTPAddr,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:         store,
		service:       service,
		sweepInterval: cfg.SweepInterval,
	}, nil
}

// Service exposes the application core for seed tooling and tests.
func (s *Server) Service() *app.Service {
	if s == nil {
		return nil
	}
	return s.service
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close. The expiry sweep runs alongside when
// an interval is configured.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("arena server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if s.sweepInterval > 0 {
		go s.service.RunExpirySweeper(sweepCtx, s.sweepInterval)
	}

	serveErr := make(chan error, 1)
	log.Printf("arena listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the store. Safe on nil.
func (s *Server) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}
