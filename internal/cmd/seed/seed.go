// Package seed fills a local arena database with demo generators and
// levels so the service can issue battles out of the box.
package seed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"strings"

	entrypoint "github.com/louisbranch/pcg.arena/internal/platform/cmd"
	"github.com/louisbranch/pcg.arena/internal/random"
	"github.com/louisbranch/pcg.arena/internal/services/arena/app"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage"
	"github.com/louisbranch/pcg.arena/internal/services/arena/storage/sqlite"
)

const (
	levelWidth  = 24
	levelHeight = 10
)

// Config holds seed command configuration.
type Config struct {
	DBPath             string `env:"ARENA_DB_PATH" envDefault:"arena.db"`
	Generators         int
	LevelsPerGenerator int
	Seed               int64
	RebuildPairStats   bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database path")
	fs.IntVar(&cfg.Generators, "generators", 4, "number of demo generators")
	fs.IntVar(&cfg.LevelsPerGenerator, "levels", 3, "levels per generator")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed for reproducibility (0 = random)")
	fs.BoolVar(&cfg.RebuildPairStats, "rebuild-pair-stats", false, "recompute generator pair stats from votes instead of seeding")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run registers the demo inventory against the configured database, or
// rebuilds the pair-stats aggregate when asked.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if cfg.RebuildPairStats {
		return rebuildPairStats(ctx, cfg, out)
	}
	if cfg.Generators < 2 {
		return fmt.Errorf("at least two generators are required, got %d", cfg.Generators)
	}
	if cfg.LevelsPerGenerator < 1 {
		return fmt.Errorf("at least one level per generator is required, got %d", cfg.LevelsPerGenerator)
	}

	seedValue := cfg.Seed
	if seedValue == 0 {
		generated, err := random.NewSeed()
		if err != nil {
			return fmt.Errorf("generate seed: %w", err)
		}
		seedValue = generated
	}
	rng := rand.New(rand.NewSource(seedValue))

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	service := app.New(store)

	for i := 0; i < cfg.Generators; i++ {
		generatorID := fmt.Sprintf("demo-gen-%02d", i+1)
		err := service.RegisterGenerator(ctx, storage.GeneratorRecord{
			ID:      generatorID,
			Name:    fmt.Sprintf("Demo Generator %d", i+1),
			Version: "1.0.0",
			Active:  true,
		})
		if err != nil {
			return fmt.Errorf("register generator %s: %w", generatorID, err)
		}

		for j := 0; j < cfg.LevelsPerGenerator; j++ {
			tilemap := buildTilemap(rng)
			levelSeed := fmt.Sprintf("%d", rng.Int63())
			err := service.RegisterLevel(ctx, storage.LevelRecord{
				ID:          fmt.Sprintf("%s-level-%02d", generatorID, j+1),
				GeneratorID: generatorID,
				Tilemap:     tilemap,
				Width:       levelWidth,
				Height:      levelHeight,
				ContentHash: contentHash(tilemap),
				Seed:        &levelSeed,
			})
			if err != nil {
				return fmt.Errorf("register level for %s: %w", generatorID, err)
			}
		}
	}

	fmt.Fprintf(out, "seeded %d generators with %d levels each (seed %d)\n",
		cfg.Generators, cfg.LevelsPerGenerator, seedValue)
	return nil
}

// rebuildPairStats recomputes the pair aggregate from stored votes.
// This is the sanctioned recovery path for a corrupted aggregate.
func rebuildPairStats(ctx context.Context, cfg Config, out io.Writer) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := app.New(store).RebuildPairStats(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "rebuilt generator pair stats from votes")
	return nil
}

// buildTilemap draws a bordered room with a solid floor and a handful
// of random platforms.
func buildTilemap(rng *rand.Rand) string {
	grid := make([][]byte, levelHeight)
	for y := range grid {
		grid[y] = make([]byte, levelWidth)
		for x := range grid[y] {
			switch {
			case y == 0 || y == levelHeight-1 || x == 0 || x == levelWidth-1:
				grid[y][x] = '#'
			default:
				grid[y][x] = '.'
			}
		}
	}

	platforms := 3 + rng.Intn(3)
	for p := 0; p < platforms; p++ {
		y := 2 + rng.Intn(levelHeight-4)
		x := 1 + rng.Intn(levelWidth-8)
		length := 3 + rng.Intn(4)
		for dx := 0; dx < length && x+dx < levelWidth-1; dx++ {
			grid[y][x+dx] = '#'
		}
	}

	// Start bottom-left, exit bottom-right.
	grid[levelHeight-2][1] = 'S'
	grid[levelHeight-2][levelWidth-2] = 'E'

	rows := make([]string, levelHeight)
	for y, row := range grid {
		rows[y] = string(row)
	}
	return strings.Join(rows, "\n")
}

func contentHash(tilemap string) string {
	sum := sha256.Sum256([]byte(tilemap))
	return "sha256:" + hex.EncodeToString(sum[:])
}
