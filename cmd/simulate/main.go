// Package main provides a headless match runner: it simulates one match as
// fast as possible, prints the result and optionally writes and verifies a replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/game/rng"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/replay"
	"github.com/cory-johannsen/arena/internal/rules"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	first := flag.String("a", "", "genome id of fighter 0 (default: first in roster)")
	second := flag.String("b", "", "genome id of fighter 1 (default: second in roster)")
	seed := flag.Uint64("seed", 0, "match seed; 0 uses match.seed from config, then a fresh seed")
	replayPath := flag.String("replay", "", "write the replay to this file")
	verify := flag.Bool("verify", false, "re-simulate the written replay and check it matches")
	traceRNG := flag.Bool("trace-rng", false, "log every random draw at debug level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "simulate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	roster, err := genome.LoadDir(cfg.Match.GenomeDir)
	if err != nil {
		log.Fatalf("loading genomes: %v", err)
	}
	genomes, err := pick(roster, *first, *second)
	if err != nil {
		log.Fatalf("choosing fighters: %v", err)
	}

	tuning := combat.DefaultTuning()
	if cfg.Match.TuningFile != "" {
		if tuning, err = combat.LoadTuning(cfg.Match.TuningFile); err != nil {
			log.Fatalf("loading tuning: %v", err)
		}
	}
	settings := cfg.MatchSettings(tuning)

	ruleMgr := rules.NewManager(cfg.Rules.InstructionLimit, logger)
	if cfg.Rules.ScriptDir != "" {
		if err := ruleMgr.LoadDir(cfg.Rules.ScriptDir); err != nil {
			log.Fatalf("loading rule scripts: %v", err)
		}
	}
	rule, err := ruleMgr.NewRule()
	if err != nil {
		log.Fatalf("building sudden death rule: %v", err)
	}

	s := *seed
	if s == 0 {
		s = cfg.Match.Seed
	}
	if s == 0 {
		s = rng.NewSeed()
	}
	id := uuid.New()
	logger = logger.With(observability.MatchFields(id, s, genomes)...)

	var src rng.Source = rng.NewSeeded(s)
	if *traceRNG {
		src = rng.NewLoggedSource(src, logger.Named("rng"))
	}
	ctrl, err := match.NewController(id, genomes, src, rule, settings, logger)
	if err != nil {
		log.Fatalf("creating match: %v", err)
	}

	var w *replay.Writer
	if *replayPath != "" {
		f, err := os.Create(*replayPath)
		if err != nil {
			log.Fatalf("creating replay file: %v", err)
		}
		w, err = replay.NewWriter(f, replay.Header{
			MatchID:      id,
			Seed:         s,
			Genomes:      genomes,
			TickInterval: settings.Tuning.TickInterval,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			log.Fatalf("starting replay: %v", err)
		}
	}

	var events int
	res, err := ctrl.Simulate(context.Background(), func(f match.Frame) {
		events += len(f.Events)
		if w != nil {
			if err := w.WriteFrame(f); err != nil {
				log.Fatalf("writing replay: %v", err)
			}
		}
	})
	if closer, ok := rule.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if err != nil {
		log.Fatalf("simulating: %v", err)
	}
	if w != nil {
		if err := w.Finish(res); err != nil {
			log.Fatalf("finishing replay: %v", err)
		}
	}

	winner := res.WinnerID()
	if winner == "" {
		winner = "none"
	}
	fmt.Fprintf(os.Stdout, "%s vs %s: winner=%s reason=%s ticks=%d (%.1fs match time) hp=%.1f/%.1f events=%d seed=%d draws=%d [%s]\n",
		genomes[0].ID, genomes[1].ID, winner, res.Reason, res.Ticks,
		(time.Duration(res.Ticks) * settings.Tuning.TickInterval).Seconds(),
		res.FinalHP[0], res.FinalHP[1], events, res.Seed, res.Draws, time.Since(start))

	if *verify {
		if *replayPath == "" {
			log.Fatalf("-verify needs -replay")
		}
		if err := verifyReplay(*replayPath, settings, ruleMgr, logger); err != nil {
			log.Fatalf("verifying replay: %v", err)
		}
		fmt.Fprintf(os.Stdout, "replay %s verified\n", *replayPath)
	}
}

func pick(roster []genome.Genome, a, b string) ([2]genome.Genome, error) {
	if len(roster) < 2 {
		return [2]genome.Genome{}, fmt.Errorf("roster has %d genomes, need 2", len(roster))
	}
	out := [2]genome.Genome{roster[0], roster[1]}
	for i, id := range []string{a, b} {
		if id == "" {
			continue
		}
		found := false
		for _, g := range roster {
			if g.ID == id {
				out[i], found = g, true
				break
			}
		}
		if !found {
			return out, fmt.Errorf("unknown genome %q", id)
		}
	}
	return out, nil
}

func verifyReplay(path string, settings match.Settings, ruleMgr *rules.Manager, logger *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r, err := replay.NewReader(f)
	if err != nil {
		return err
	}
	rule, err := ruleMgr.NewRule()
	if err != nil {
		return err
	}
	if closer, ok := rule.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	_, err = replay.Verify(context.Background(), r, settings, rule, logger.Named("verify"))
	return err
}
