package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"ncfledger/internal/app"
	"ncfledger/internal/config"
	"ncfledger/internal/infrastructure/storage/postgres"
	"ncfledger/pkg/logger"
)

// Worker runs the periodic jobs.
type Worker struct {
	services *app.Services
	monitor  config.MonitorConfig
	outbox   config.OutboxConfig
	relay    *postgres.OutboxRelay
	log      *logger.Logger
}

// NewWorker creates a worker. Outbox delivery runs only on postgres
// storage; the memory store keeps its events in process.
func NewWorker(services *app.Services, cfg *config.Config, log *logger.Logger) *Worker {
	w := &Worker{
		services: services,
		monitor:  cfg.Monitor,
		outbox:   cfg.Outbox,
		log:      log.WithComponent("worker"),
	}
	if services.Backend.PgTx != nil {
		w.relay = postgres.NewOutboxRelay(services.Backend.PgTx, cfg.Outbox.BatchSize, postgres.LogHandler{})
	}
	return w
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return every(ctx, w.monitor.Interval, w.monitorCycle)
	})
	if w.relay != nil {
		g.Go(func() error {
			return every(ctx, w.outbox.Interval, w.relayCycle)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// monitorCycle sweeps lifecycle states, then scans every NCF-enabled owner
// with its own thresholds and publishes the alerts.
func (w *Worker) monitorCycle(ctx context.Context) error {
	mon := w.services.Monitor

	swept, err := mon.Sweep(ctx, time.Time{})
	if err != nil {
		return err
	}
	if swept.Expired > 0 || swept.Depleted > 0 {
		w.log.Infow("lifecycle sweep", "expired", swept.Expired, "depleted", swept.Depleted)
	}

	owners, err := w.services.Owners.List(ctx, true)
	if err != nil {
		return err
	}
	alerts, err := mon.ScanOwners(ctx, owners, w.monitor.Concurrency)
	if err != nil {
		return err
	}
	return mon.Publish(ctx, alerts)
}

func (w *Worker) relayCycle(ctx context.Context) error {
	for {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			w.log.Debugw("outbox batch delivered", "count", n)
		}
		if n < w.outbox.BatchSize {
			return nil
		}
	}
}

// every runs fn immediately and then on each tick. A failing cycle is
// logged and retried on the next tick.
func every(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logger.Error(ctx, "worker cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
