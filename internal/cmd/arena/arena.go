// Package arena parses arena service flags and launches the service.
package arena

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/pcg.arena/internal/platform/cmd"
	server "github.com/louisbranch/pcg.arena/internal/services/arena"
	"github.com/louisbranch/pcg.arena/internal/services/arena/domain/matchmaking"
)

// Config holds arena command configuration.
type Config struct {
	HTTPAddr      string        `env:"ARENA_HTTP_ADDR"      envDefault:":8090"`
	DBPath        string        `env:"ARENA_DB_PATH"        envDefault:"arena.db"`
	BattleTTL     time.Duration `env:"ARENA_BATTLE_TTL"     envDefault:"0"`
	SweepInterval time.Duration `env:"ARENA_SWEEP_INTERVAL" envDefault:"1m"`

	MinGamesForSignificance int     `env:"ARENA_AGIS_MIN_GAMES_FOR_SIGNIFICANCE" envDefault:"20"`
	RatingSimilaritySigma   float64 `env:"ARENA_AGIS_RATING_SIMILARITY_SIGMA"    envDefault:"200"`
	TargetBattlesPerPair    int     `env:"ARENA_AGIS_TARGET_BATTLES_PER_PAIR"    envDefault:"10"`
	QualityBiasStrength     float64 `env:"ARENA_AGIS_QUALITY_BIAS_STRENGTH"      envDefault:"0.1"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "arena HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.DurationVar(&cfg.BattleTTL, "battle-ttl", cfg.BattleTTL, "battle lifetime before expiry (0 disables)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "expiry sweep interval")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the arena server and serves until the context ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArena, func(context.Context) error {
		srv, err := server.NewServer(server.Config{
			HTTPAddr:      cfg.HTTPAddr,
			DBPath:        cfg.DBPath,
			BattleTTL:     cfg.BattleTTL,
			SweepInterval: cfg.SweepInterval,
			Matchmaking: matchmaking.Params{
				MinGamesForSignificance: cfg.MinGamesForSignificance,
				RatingSimilaritySigma:   cfg.RatingSimilaritySigma,
				TargetBattlesPerPair:    cfg.TargetBattlesPerPair,
				QualityBiasStrength:     cfg.QualityBiasStrength,
			},
		})
		if err != nil {
			return fmt.Errorf("init arena server: %w", err)
		}
		defer srv.Close()

		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve arena: %w", err)
		}
		return nil
	})
}
