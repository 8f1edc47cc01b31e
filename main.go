package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/cellsim/config"
	"github.com/pthm-cable/cellsim/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = until extinction)")
	printEvery := flag.Int("print-every", 0, "Print an ASCII snapshot to stderr every N ticks (0 = never)")
	verify := flag.Bool("verify", false, "Check the occupancy invariant after every tick")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	s, err := sim.New(cfg, sim.Options{
		Seed:        rngSeed,
		Logger:      logger,
		OutputDir:   *outputDir,
		StatsWindow: *statsWindow,
		LogStats:    *logStats,
		Verify:      *verify,
	})
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting simulation",
		"seed", rngSeed,
		"rows", cfg.World.Rows,
		"columns", cfg.World.Columns,
		"species", cfg.Plant.Species,
		"max_ticks", *maxTicks,
	)

	code := run(ctx, s, *maxTicks, *printEvery)
	if err := s.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		code = 1
	}
	os.Exit(code)
}

// run ticks until max ticks, extinction or cancellation. Entity failures are
// logged by the simulation and do not stop the run unless they left the
// world inconsistent.
func run(ctx context.Context, s *sim.Simulation, maxTicks, printEvery int) int {
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "tick", s.CurrentTick())
			return 0
		default:
		}

		if err := s.Tick(); err != nil {
			if verr := s.Verify(); verr != nil {
				slog.Error("world invariant violated", "tick", s.CurrentTick(), "error", verr)
				return 1
			}
		}

		tick := int(s.CurrentTick())
		if printEvery > 0 && tick%printEvery == 0 {
			st := s.Stats()
			fmt.Fprintf(os.Stderr, "tick %d: %d organisms, %d plant cells, %d pooled\n%s\n",
				tick, st.Organisms, st.PlantCells, st.PooledEnergy, s.Snapshot())
		}

		if s.Extinct() {
			slog.Info("organisms extinct", "tick", tick)
			break
		}
		if maxTicks > 0 && tick >= maxTicks {
			slog.Info("max ticks reached", "tick", tick)
			break
		}
	}

	st := s.Stats()
	slog.Info("simulation finished",
		"tick", st.Tick,
		"organisms", st.Organisms,
		"plant_cells", st.PlantCells,
		"pooled_energy", st.PooledEnergy,
		"max_generation", st.MaxGeneration,
		"elapsed", time.Since(start).String(),
	)
	return 0
}
