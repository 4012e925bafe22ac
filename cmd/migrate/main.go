// Command migrate applies the SQL schema and seeds the first platform admin.
//
//	migrate up | down | steps N | force V | version | seed-demo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"dineflow/internal/config"
	"dineflow/internal/database"
	"dineflow/internal/database/migrations"
	"dineflow/internal/logger"
	"dineflow/internal/platform"
	"dineflow/internal/store"

	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate [-dir path] up | down | steps N | force V | version | seed-demo")
	flag.PrintDefaults()
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	dir := flag.String("dir", cfg.Migrations.Dir, "directory holding the *.up.sql and *.down.sql files")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	log := logger.NewLogger(logger.Options{Level: cfg.Log.Level})
	defer log.Close()

	ctx := context.Background()
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}

	runner := migrations.NewRunner(bunDB.DB, *dir, log)
	// The runner owns the connection from here on and closes it.
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn("MIGRATE", err.Error())
		}
	}()

	if err := run(ctx, cfg, runner, store.New(bunDB), log, flag.Args()); err != nil {
		log.Error("MIGRATE", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, runner *migrations.Runner, db *store.DB, log *logger.Logger, args []string) error {
	switch args[0] {
	case "up":
		if err := runner.Up(); err != nil {
			return err
		}
		return bootstrapAdmin(ctx, cfg, db, log)
	case "down":
		return runner.Down()
	case "steps":
		n, err := intArg(args, "steps")
		if err != nil {
			return err
		}
		return runner.Steps(n)
	case "force":
		v, err := intArg(args, "force")
		if err != nil {
			return err
		}
		return runner.Force(v)
	case "version":
		v, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d dirty=%v\n", v, dirty)
		return nil
	case "seed-demo":
		return seedDemo(ctx, cfg, db, log)
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func intArg(args []string, cmd string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s needs a number", cmd)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s needs a number, got %q", cmd, args[1])
	}
	return n, nil
}

// bootstrapAdmin creates the SUPER_ADMIN named by SUPER_ADMIN_EMAIL and
// SUPER_ADMIN_PASSWORD once the schema is in place.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, db *store.DB, log *logger.Logger) error {
	m := cfg.Migrations
	if m.SuperAdminMail == "" || m.SuperAdminPass == "" {
		log.Info("MIGRATE", "SUPER_ADMIN_EMAIL not set, skipping platform admin bootstrap")
		return nil
	}
	svc := &platform.Service{DB: db, Logger: log}
	admin, created, err := svc.Bootstrap(ctx, m.SuperAdminMail, m.SuperAdminPass, m.SuperAdminName)
	if err != nil {
		return fmt.Errorf("bootstrap platform admin: %w", err)
	}
	if created {
		log.LogSecurity("ADMIN_BOOTSTRAP", "Created super admin "+admin.Email)
	} else {
		log.Info("MIGRATE", "Super admin "+admin.Email+" already exists")
	}
	return nil
}
