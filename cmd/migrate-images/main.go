// Command migrate-images copies externally hosted activity images into the
// object store and repoints the activities at the local copies.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"signups/internal/adapters/objectstore"
	"signups/internal/adapters/photos"
	"signups/internal/adapters/storage"
	activityStore "signups/internal/adapters/storage/activity"
	"signups/internal/application/orchestrators"
	"signups/internal/config"
	"signups/internal/logging"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "list the images that would be migrated without copying them")
	concurrency := flag.Int("concurrency", 4, "number of parallel downloads")
	flag.Parse()

	if err := run(*dryRun, *concurrency); err != nil {
		fmt.Fprintf(os.Stderr, "migrate-images: %v\n", err)
		os.Exit(1)
	}
}

func run(dryRun bool, concurrency int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.InitDB(ctx, db); err != nil {
		return err
	}

	objects, err := objectstore.NewFileStore(cfg.ObjectDir)
	if err != nil {
		return err
	}

	res, err := orchestrators.ExecuteMigrateImages(ctx, orchestrators.MigrateImagesDeps{
		ActivityStore: activityStore.NewSQLiteStore(db),
		Objects:       objects,
		Fetcher:       photos.NewFetcher(),
		Concurrency:   concurrency,
		DryRun:        dryRun,
	})
	if err != nil {
		return err
	}
	slog.Info("image_migration_summary", "dry_run", dryRun, "migrated", res.Migrated, "skipped", res.Skipped, "failed", res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d images failed to migrate", res.Failed)
	}
	return nil
}
