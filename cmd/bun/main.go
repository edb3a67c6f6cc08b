package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	matchmakingmigrations "github.com/Black-And-White-Club/lobby-bot/app/modules/matchmaking/infrastructure/repositories/migrations"
	ratingmigrations "github.com/Black-And-White-Club/lobby-bot/app/modules/rating/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/lobby-bot/config"
	"github.com/Black-And-White-Club/lobby-bot/db/bundb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := bundb.Open(cfg.Postgres.DSN)
	defer db.Close()

	// Applied in order, rolled back in reverse.
	migrators := []moduleMigrator{
		{name: "rating", migrator: migrate.NewMigrator(db, ratingmigrations.Migrations)},
		{name: "matchmaking", migrator: migrate.NewMigrator(db, matchmakingmigrations.Migrations)},
	}

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(migrators),
			newRiverCommand(cfg.Postgres.DSN),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

func findMigrator(migrators []moduleMigrator, name string) (*migrate.Migrator, error) {
	for _, m := range migrators {
		if m.name == name {
			return m.migrator, nil
		}
	}
	names := make([]string, 0, len(migrators))
	for _, m := range migrators {
		names = append(names, m.name)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("invalid module name %q, want one of %s", name, strings.Join(names, ", "))
}

func newMultiModuleDBCommand(migrators []moduleMigrator) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						if err := m.migrator.Init(c.Context); err != nil {
							return fmt.Errorf("init %s: %w", m.name, err)
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						if err := m.migrator.Lock(c.Context); err != nil {
							return err
						}
						group, err := m.migrator.Migrate(c.Context)
						if unlockErr := m.migrator.Unlock(c.Context); unlockErr != nil && err == nil {
							err = unlockErr
						}
						if err != nil {
							return fmt.Errorf("migrate %s: %w", m.name, err)
						}
						if group.IsZero() {
							fmt.Printf("%s: no new migrations\n", m.name)
						} else {
							fmt.Printf("%s: migrated to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of every module",
				Action: func(c *cli.Context) error {
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("rollback %s: %w", m.name, err)
						}
						if group.IsZero() {
							fmt.Printf("%s: no groups to roll back\n", m.name)
						} else {
							fmt.Printf("%s: rolled back %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					migrator, err := findMigrator(migrators, c.Args().First())
					if err != nil {
						return err
					}
					mf, err := migrator.CreateGoMigration(c.Context, strings.Join(c.Args().Tail(), "_"))
					if err != nil {
						return err
					}
					fmt.Printf("created %s (%s)\n", mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("%s:\n  applied: %s\n  unapplied: %s\n", m.name, ms.Applied(), ms.Unapplied())
					}
					return nil
				},
			},
		},
	}
}

func newRiverCommand(dsn string) *cli.Command {
	run := func(ctx context.Context, direction rivermigrate.Direction) error {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return fmt.Errorf("failed to create pgx pool: %w", err)
		}
		defer pool.Close()

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			return err
		}
		opts := &rivermigrate.MigrateOpts{}
		if direction == rivermigrate.DirectionDown {
			opts.MaxSteps = 1
		}
		res, err := migrator.Migrate(ctx, direction, opts)
		if err != nil {
			return err
		}
		for _, v := range res.Versions {
			fmt.Printf("river: %s version %d\n", direction, v.Version)
		}
		return nil
	}

	return &cli.Command{
		Name:  "river",
		Usage: "job queue schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "apply every pending River migration",
				Action: func(c *cli.Context) error { return run(c.Context, rivermigrate.DirectionUp) },
			},
			{
				Name:   "down",
				Usage:  "roll back the latest River migration",
				Action: func(c *cli.Context) error { return run(c.Context, rivermigrate.DirectionDown) },
			},
		},
	}
}
