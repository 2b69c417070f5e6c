package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/setlog/internal/config"
	"github.com/claude/setlog/internal/importer"
	"github.com/claude/setlog/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	backupPath := flag.String("file", "", "path to exported backup JSON (required)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *backupPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: setlog-import -config config.yaml -file /path/to/backup.json\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open database and run migrations
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		log.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	f, err := os.Open(*backupPath)
	if err != nil {
		log.Error("failed to open backup file", "path", *backupPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	result, err := importer.Import(context.Background(), db, f, log)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	log.Info("import complete",
		"templates_inserted", result.TemplatesInserted,
		"templates_duplicated", result.TemplatesDuplicated,
		"sessions_inserted", result.SessionsInserted,
		"sessions_duplicated", result.SessionsDuplicated,
	)
}
