// Package main is the entry point for the NCF background worker: the
// lifecycle sweep, alert scans and outbox delivery.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ncfledger/internal/app"
	"ncfledger/internal/config"
	"ncfledger/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
		Service:     "worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting ncfledger worker", "storage", cfg.Storage.Driver)

	rt, err := app.Start(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to start", "error", err)
	}
	defer rt.Close()

	if err := NewWorker(rt.Services, cfg, log).Run(ctx); err != nil {
		log.Errorw("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
