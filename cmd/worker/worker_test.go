package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ncfledger/internal/app"
	"ncfledger/internal/config"
	"ncfledger/internal/core/events"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/storage/memory"
	"ncfledger/pkg/logger"
)

func TestMonitorCyclePublishesOwnerAlerts(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 12, 10, 9, 0, 0, 0, time.UTC)
	store := memory.New()
	svc := app.NewServices(app.MemoryBackend(store), app.Options{
		Clock: func() time.Time { return now },
	})

	o := owner.New("Distribuidora Norte", "")
	require.NoError(t, svc.Owners.Create(ctx, o))

	seq, err := svc.Sequences.Create(ctx, sequence.Spec{
		OwnerID:      o.ID,
		Prefix:       "B01",
		DocumentType: ncf.DocInvoice,
		RangeStart:   1,
		RangeEnd:     100,
		ValidFrom:    now,
		Activate:     true,
	})
	require.NoError(t, err)
	require.NoError(t, store.Sequences().AdvanceCursor(ctx, seq.ID, 1, 96, ncf.StateActive))

	cfg := &config.Config{Monitor: config.MonitorConfig{Interval: time.Hour, Concurrency: 2}}
	w := NewWorker(svc, cfg, logger.Default())
	assert.Nil(t, w.relay)

	require.NoError(t, w.monitorCycle(ctx))

	var types []string
	for _, e := range store.Published() {
		types = append(types, e.EventType)
	}
	// validUntil defaults to Dec 31, inside the owner's 30 day window.
	assert.Contains(t, types, events.TypeAlertLowStock)
	assert.Contains(t, types, events.TypeAlertExpiring)
}

func TestEveryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := every(ctx, time.Millisecond, func(context.Context) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, calls, 3)
}
