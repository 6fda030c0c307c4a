// Package main provides the arena server binary: it runs matches back to back
// and serves spectators over gRPC and websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/genome"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/gameserver"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/replay"
	"github.com/cory-johannsen/arena/internal/rules"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "arenaserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arena server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("ws_addr", cfg.GameServer.WSAddr()),
	)

	// Roster
	roster, err := genome.LoadDir(cfg.Match.GenomeDir)
	if err != nil {
		logger.Fatal("loading genomes", zap.String("dir", cfg.Match.GenomeDir), zap.Error(err))
	}
	logger.Info("genomes loaded", zap.Int("count", len(roster)))

	tuning := combat.DefaultTuning()
	if cfg.Match.TuningFile != "" {
		tuning, err = combat.LoadTuning(cfg.Match.TuningFile)
		if err != nil {
			logger.Fatal("loading tuning", zap.String("file", cfg.Match.TuningFile), zap.Error(err))
		}
		logger.Info("tuning loaded", zap.String("file", cfg.Match.TuningFile))
	}
	settings := cfg.MatchSettings(tuning)

	// Sudden-death rule scripts
	ruleMgr := rules.NewManager(cfg.Rules.InstructionLimit, logger)
	if cfg.Rules.ScriptDir != "" {
		if err := ruleMgr.LoadDir(cfg.Rules.ScriptDir); err != nil {
			logger.Fatal("loading rule scripts", zap.String("dir", cfg.Rules.ScriptDir), zap.Error(err))
		}
		logger.Info("rule scripts loaded", zap.String("dir", cfg.Rules.ScriptDir))
	}

	deps := match.ManagerDeps{Rules: ruleMgr}
	if cfg.Replay.Dir != "" {
		deps.Sinks = replay.FileSinks(cfg.Replay.Dir, settings.Tuning.TickInterval)
	}

	lifecycle := server.NewLifecycle(logger)

	// Result persistence
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		if err := pool.CheckSchema(ctx); err != nil {
			logger.Fatal("checking database schema", zap.Error(err))
		}
		deps.Recorder = postgres.NewResultRepository(pool.DB())

		healthCtx, stopHealth := context.WithCancel(ctx)
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-healthCtx.Done():
						return nil
					case <-ticker.C:
						if err := pool.Health(healthCtx, 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
						}
					}
				}
			},
			StopFn: func() {
				stopHealth()
				pool.Close()
			},
		})
	}

	matches, err := match.NewManager(settings, deps, logger)
	if err != nil {
		logger.Fatal("creating match manager", zap.Error(err))
	}

	interval := cfg.Match.Intermission
	if interval <= 0 {
		interval = settings.Tuning.TickInterval
	}
	scheduler, err := gameserver.NewScheduler(matches, roster, cfg.Match.Concurrent, interval, cfg.Match.Seed, logger)
	if err != nil {
		logger.Fatal("creating scheduler", zap.Error(err))
	}

	schedCtx, stopSched := context.WithCancel(ctx)
	schedDone := make(chan struct{})
	lifecycle.Add("matches", &server.FuncService{
		StartFn: func() error {
			defer close(schedDone)
			scheduler.Run(schedCtx)
			return nil
		},
		StopFn: func() {
			stopSched()
			<-schedDone
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := matches.Shutdown(sctx); err != nil {
				logger.Warn("match shutdown incomplete", zap.Error(err))
			}
		},
	})

	auth := gameserver.NewAdminAuth(cfg.Admin.TokenHash)
	if !auth.Enabled() {
		logger.Warn("admin token hash not configured; Abort is disabled")
	}
	grpcServer := grpc.NewServer()
	gameserver.NewArenaService(matches, auth, cfg.GameServer.WatchBuffer, logger).Register(grpcServer)

	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			grpcServer.GracefulStop()
		},
	})

	hub := gameserver.NewHub(matches, cfg.GameServer.WatchBuffer, logger)
	httpServer := &http.Server{
		Addr:              cfg.GameServer.WSAddr(),
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	lifecycle.Add("websocket", &server.FuncService{
		StartFn: func() error {
			logger.Info("websocket hub listening", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(sctx)
			hub.Close()
		},
	})

	logger.Info("arena server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Int("pairings", len(gameserver.Pairings(roster))),
		zap.Int("concurrent", cfg.Match.Concurrent),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
