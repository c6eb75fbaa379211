// Package main loads reference data into the portal database: map markers,
// system components, courses and their assignments.
//
// Usage:
//
//	seed [-file fixtures.yaml] [-migrate]
//
// Without -file the fixtures bundled with the binary are applied. Records are
// keyed by stable ids, so running the command twice is harmless.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aegis-hub/aegis-portal/config"
	"github.com/aegis-hub/aegis-portal/internal/bootstrap"
	"github.com/aegis-hub/aegis-portal/internal/infrastructure/seed"
)

func main() {
	file := flag.String("file", "", "fixture file to load instead of the bundled one")
	migrate := flag.Bool("migrate", true, "apply pending migrations before seeding")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *file, *migrate); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file string, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return errors.New("seeding needs DATABASE_DRIVER=postgres; the memory driver seeds itself on start")
	}
	cfg.Database.AutoMigrate = cfg.Database.AutoMigrate || migrate
	// Nothing here publishes events or reads the cache.
	cfg.Redis.Disabled = true

	log := bootstrap.SetupLogger(cfg).With("component", "seed")

	var fixtures *seed.Fixtures
	if file == "" {
		log.Info("loading bundled fixtures")
		fixtures, err = seed.Default()
	} else {
		log.Info("loading fixtures", "file", file)
		fixtures, err = seed.LoadFile(file)
	}
	if err != nil {
		return err
	}

	infra, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.Close()

	res, err := seed.NewLoader(infra.Repos.SeedTargets(), log).Apply(ctx, fixtures)
	if err != nil {
		return fmt.Errorf("apply fixtures: %w", err)
	}

	log.Info("seed completed",
		"locations", res.Locations,
		"components", res.Components,
		"courses", res.Courses,
		"assignments", res.Assignments,
	)
	return nil
}
