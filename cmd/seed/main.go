package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"review-service/internal/auth/credentials"
	"review-service/internal/config"
	"review-service/internal/db"
	"review-service/internal/logger"
	"review-service/internal/seed"
	"review-service/internal/storage"
)

func main() {
	file := flag.String("file", "fixtures/seed.yaml", "YAML fixture to load")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", map[string]any{"error": err.Error()})
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fixture, err := seed.LoadFile(*file)
	if err != nil {
		logger.Fatal("failed to load fixture", map[string]any{"file": *file, "error": err.Error()})
	}

	d, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to open database", map[string]any{"error": err.Error()})
	}
	defer d.Close()

	if err := db.Migrate(ctx, d); err != nil {
		logger.Fatal("migration failed", map[string]any{"error": err.Error()})
	}

	// sessions are not touched: new users have none to revoke
	issued, err := seed.Apply(ctx, fixture, storage.New(d), credentials.NewService(d, nil))
	if err != nil {
		logger.Fatal("seed failed", map[string]any{"error": err.Error()})
	}

	for _, u := range issued {
		fmt.Printf("%s\t%s\t%s\n", u.ID, u.Role, u.SessionKey)
	}
}
