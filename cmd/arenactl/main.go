// Package main provides an operator CLI for the arena server.
//
//	arenactl hash-token -token T          print a bcrypt hash for admin.token_hash
//	arenactl list                         list running matches and recent results
//	arenactl watch -match ID              print a match's frames as they arrive
//	arenactl abort -match ID -token T     abort a running match
//	arenactl standing -genome ID          print a genome's record from the database
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/match"
	"github.com/cory-johannsen/arena/internal/gameserver"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "configs/dev.yaml", "path to configuration file")
	matchID := fs.String("match", "", "match id")
	token := fs.String("token", os.Getenv("ARENA_ADMIN_TOKEN"), "admin token (default $ARENA_ADMIN_TOKEN)")
	reason := fs.String("reason", "operator", "abort reason")
	genomeID := fs.String("genome", "", "genome id")
	_ = fs.Parse(args)

	start := time.Now()
	switch cmd {
	case "hash-token":
		hash, err := gameserver.HashToken(*token)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Fprintln(os.Stdout, hash)
		return
	case "list", "watch", "abort", "standing":
	default:
		usage()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if cmd == "standing" {
		if *genomeID == "" {
			fs.Usage()
			os.Exit(1)
		}
		standing(cfg, *genomeID, start)
		return
	}

	conn, err := grpc.NewClient(cfg.GameServer.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("connecting to %s: %v", cfg.GameServer.Addr(), err)
	}
	defer conn.Close()
	client := gameserver.NewClient(conn)

	switch cmd {
	case "list":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		l, err := client.ListMatches(ctx)
		if err != nil {
			log.Fatalf("listing matches: %v", err)
		}
		for _, m := range l.Running {
			fmt.Fprintf(os.Stdout, "running  %s  %-9s tick=%-6d %s vs %s  watchers=%d\n",
				m.ID, m.Phase, m.Tick, m.Fighters[0].ID, m.Fighters[1].ID, m.Watchers)
		}
		for _, r := range l.Recent {
			fmt.Fprintf(os.Stdout, "finished %s  %-9s ticks=%-5d %s vs %s  winner=%q seed=%s\n",
				r.MatchID, r.Reason, r.Ticks, r.Fighters[0], r.Fighters[1], r.WinnerID, r.Seed)
		}
	case "watch":
		stream, err := client.Watch(context.Background(), *matchID)
		if err != nil {
			log.Fatalf("watching %s: %v", *matchID, err)
		}
		err = stream.Drain(func(f match.Frame) {
			a, b := f.Snapshot.Fighters[0], f.Snapshot.Fighters[1]
			fmt.Fprintf(os.Stdout, "tick %-6d %-9s %s hp=%.1f st=%.0f %s | %s hp=%.1f st=%.0f %s | events=%d\n",
				f.Snapshot.Tick, f.Snapshot.Phase,
				a.ID, a.HP, a.Stamina, a.AIState, b.ID, b.HP, b.Stamina, b.AIState, len(f.Events))
		})
		if err != nil {
			log.Fatalf("watching %s: %v", *matchID, err)
		}
	case "abort":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := client.Abort(ctx, *matchID, *reason, *token); err != nil {
			log.Fatalf("aborting %s: %v", *matchID, err)
		}
		fmt.Fprintf(os.Stdout, "aborted %s [%s]\n", *matchID, time.Since(start))
	}
}

func standing(cfg config.Config, genomeID string, start time.Time) {
	if !cfg.Database.Enabled {
		log.Fatalf("database is disabled in config")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	s, err := postgres.NewResultRepository(pool.DB()).Standing(ctx, genomeID)
	if err != nil {
		log.Fatalf("querying standing: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s: %d wins, %d losses, %d draws, %d aborted [%s]\n",
		s.GenomeID, s.Wins, s.Losses, s.Draws, s.Aborted, time.Since(start))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: arenactl <hash-token|list|watch|abort|standing> [flags]")
	os.Exit(1)
}
