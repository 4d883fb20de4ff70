package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/wjtan-dev/blockwatch-backend/internal/incidents"
	"github.com/wjtan-dev/blockwatch-backend/pkg/config"
	"github.com/wjtan-dev/blockwatch-backend/pkg/db"
	"github.com/wjtan-dev/blockwatch-backend/pkg/logger"
	"github.com/wjtan-dev/blockwatch-backend/pkg/migrate"
)

// Loads an incident CSV export, replacing the current dataset.
func main() {
	logg := logger.New(logger.Options{ServiceName: "import"})

	_ = godotenv.Load()

	file := flag.String("file", "", "path to the incident CSV export")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "missing -file")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "import",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	importer, err := incidents.NewImporter(incidents.ImporterParams{
		Repo: incidents.NewRepository(dbClient.DB()),
		Tx:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create importer", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		logg.Error(context.Background(), "failed to open csv", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"file": *file,
	})

	summary, err := importer.ImportCSV(ctx, f)
	if err != nil {
		logg.Error(ctx, "import failed", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"parsed":   summary.Parsed,
		"skipped":  summary.Skipped,
		"inserted": summary.Inserted,
	})
	logg.Info(ctx, "incident dataset replaced")
}
