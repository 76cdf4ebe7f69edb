// Package app wires the arena domain to storage: battle issuance, vote
// ingestion, projections, and the expiry sweep.
package app

import (
	"math/rand"
	"sync"
	"time"

	"github.com/louisbranch/pcg.arena/internal/platform/id"
	"github.com/louisbranch/pcg.arena/internal/platform/metrics"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
)

// MatchmakingPolicy tags battles with the sampler that produced them.
const MatchmakingPolicy = "agis_v1"

// Service exposes the arena operations backed by a store.
type Service struct {
	store   storage.Store
	unique  storage.UniqueViolationChecker
	params  matchmaking.Params
	metrics *metrics.Registry

	now         func() time.Time
	newBattleID func() string
	newVoteID   func() string
	newEventID  func() string

	battleTTL time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customizes a Service.
type Option func(*Service)

// WithParams overrides the AGIS tuning.
func WithParams(params matchmaking.Params) Option {
	return func(s *Service) { s.params = params }
}

// WithMetrics attaches the metrics registry. Nil-safe by default.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRand injects the sampler randomness for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBattleTTL enables battle expiry with the given lifetime. Zero
// disables expiry stamping.
func WithBattleTTL(ttl time.Duration) Option {
	return func(s *Service) { s.battleTTL = ttl }
}

// WithIDGenerators injects identifier factories for deterministic tests.
func WithIDGenerators(battleID, voteID, eventID func() string) Option {
	return func(s *Service) {
		s.newBattleID = battleID
		s.newVoteID = voteID
		s.newEventID = eventID
	}
}

// New builds a Service around the store. The unique checker is derived
// from the store when it implements storage.UniqueViolationChecker.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		params:      matchmaking.DefaultParams(),
		now:         func() time.Time { return time.Now().UTC() },
		newBattleID: id.NewBattleID,
		newVoteID:   id.NewVoteID,
		newEventID:  id.NewEventID,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if checker, ok := store.(storage.UniqueViolationChecker); ok {
		s.unique = checker
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// sampler builds a fresh sampler view over the shared RNG. The mutex
// makes the shared RNG safe under concurrent requests.
func (s *Service) sample(candidates []matchmaking.Candidate, counts map[matchmaking.PairKey]int) (matchmaking.Candidate, matchmaking.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return matchmaking.NewSampler(s.params, s.rng).SelectPair(candidates, counts)
}

// pickIndex draws a uniform index under the RNG lock.
func (s *Service) pickIndex(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Service) isUniqueViolation(err error) bool {
	return s.unique != nil && s.unique.IsUniqueViolation(err)
}
