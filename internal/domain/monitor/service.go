package monitor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/core/tx"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/sequence"
	"ncfledger/pkg/logger"
)

// UsageRecorder exports per-sequence usage for dashboards.
type UsageRecorder interface {
	SetSequenceUsage(s sequence.Sequence, percentageUsed float64, available int64, daysToExpiry int)
}

// ServiceConfig wires the monitor.
type ServiceConfig struct {
	Registry  *sequence.Service
	TxManager tx.Manager
	Events    events.Publisher // optional
	Usage     UsageRecorder    // optional
	Clock     ncf.Clock        // optional
}

// Service is the alerting and lifecycle monitor. It reads the registry and
// never touches the ledger.
type Service struct {
	registry *sequence.Service
	txm      tx.Manager
	events   events.Publisher
	usage    UsageRecorder
	clock    ncf.Clock
}

// NewService creates a monitor.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		registry: cfg.Registry,
		txm:      cfg.TxManager,
		events:   cfg.Events,
		usage:    cfg.Usage,
		clock:    cfg.Clock,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.clock == nil {
		s.clock = ncf.SystemClock
	}
	return s
}

// Scan evaluates every Active sequence of ownerID against th. Re-running it
// yields the same alerts while conditions persist.
func (s *Service) Scan(ctx context.Context, ownerID id.ID, th Thresholds) ([]Alert, error) {
	today := ncf.Day(s.clock())

	seqs, err := s.registry.List(ctx, sequence.ListFilter{
		OwnerID: ownerID,
		States:  []ncf.State{ncf.StateActive},
	})
	if err != nil {
		return nil, fmt.Errorf("list active sequences: %w", err)
	}

	alerts := make([]Alert, 0)
	for _, seq := range seqs {
		if s.usage != nil {
			s.usage.SetSequenceUsage(*seq, sequence.PercentageUsed(*seq), sequence.Available(*seq), sequence.DaysToExpiry(*seq, today))
		}
		alerts = append(alerts, Evaluate(*seq, today, th)...)
	}
	return alerts, nil
}

// ScanOwners scans each owner with its own thresholds, at most limit owners
// at a time. Alerts keep the order of owners.
func (s *Service) ScanOwners(ctx context.Context, owners []*owner.Owner, limit int) ([]Alert, error) {
	results := make([][]Alert, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, o := range owners {
		g.Go(func() error {
			alerts, err := s.Scan(gctx, o.ID, ThresholdsFor(o))
			if err != nil {
				return fmt.Errorf("scan owner %s: %w", o.ID, err)
			}
			results[i] = alerts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Alert, 0)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// Sweep applies lifecycle transitions as of asOf.
func (s *Service) Sweep(ctx context.Context, asOf time.Time) (sequence.SweepResult, error) {
	if asOf.IsZero() {
		asOf = s.clock()
	}
	return s.registry.Sweep(ctx, asOf)
}

// Publish writes alerts to the outbox in one transaction. Deduplication of
// notifications is left to the consumer.
func (s *Service) Publish(ctx context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, a := range alerts {
			eventType := events.TypeAlertExpiring
			if a.Kind == KindLowAvailability {
				eventType = events.TypeAlertLowStock
			}
			if err := s.events.Publish(ctx, events.Event{
				AggregateType: events.AggregateSequence,
				AggregateID:   a.SequenceID,
				EventType:     eventType,
				Payload:       a,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish alerts: %w", err)
	}
	logger.Info(ctx, "ncf alerts published", "count", len(alerts))
	return nil
}
